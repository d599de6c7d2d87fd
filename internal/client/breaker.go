package client

import (
	"context"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerChat - 연속 실패 시 일정 시간 AI 호출을 막는 Chat 래퍼
// 열린 상태에서는 gobreaker.ErrOpenState를 즉시 반환한다.
type BreakerChat struct {
	next Chat
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerChat(name string, next Chat, failures, openSeconds int) *BreakerChat {
	if failures <= 0 {
		failures = 3
	}
	if openSeconds <= 0 {
		openSeconds = 60
	}
	threshold := uint32(failures)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ai-" + name,
		MaxRequests: 1,
		Timeout:     time.Duration(openSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[AI] Circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &BreakerChat{next: next, cb: cb}
}

func (b *BreakerChat) Complete(ctx context.Context, system, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, system, prompt)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State - 현재 breaker 상태 (closed, half-open, open)
func (b *BreakerChat) State() string {
	return b.cb.State().String()
}
