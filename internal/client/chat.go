// AI 채팅 백엔드 공통 정의
//
// 지원 provider:
//   - gemini: google.golang.org/genai (function calling으로 소스 코드 조회 도구 제공)
//   - openai: github.com/sashabaranov/go-openai (tool call로 소스 코드 조회 도구 제공)
//   - bedrock: AWS Bedrock InvokeModel (Anthropic Messages 포맷)
//   - none: 항상 실패 -> fallback 보고서
//
// 모든 백엔드는 circuit breaker(BreakerChat)로 감싼다.

package client

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kube-rca/jvm-analyzer/internal/config"
)

// Chat - 시스템 프롬프트 + 사용자 프롬프트 -> 모델 응답 텍스트
type Chat interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// SourceLookup - 모델이 호출하는 소스 코드 조회 도구
// 실패해도 에러 대신 설명 문자열을 반환해야 한다.
type SourceLookup interface {
	FetchSource(ctx context.Context, path string) string
}

const (
	sourceToolName        = "fetch_source_code"
	sourceToolDescription = "Fetch a source code file from the application GitHub repository. " +
		"Provide the path relative to the application root, e.g. src/main/java/com/example/MyClass.java. " +
		"Use this to look up Java source files referenced in stack traces and thread dumps."
	sourceToolPathArg = "path"

	// 모델이 도구를 계속 호출해도 이 횟수 이후에는 텍스트 응답을 받는다
	maxToolRounds = 5
)

var (
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrAIDisabled    = errors.New("AI analysis is disabled (AI_PROVIDER=none)")
)

// DisabledChat - AI_PROVIDER=none
type DisabledChat struct{}

func (DisabledChat) Complete(context.Context, string, string) (string, error) {
	return "", ErrAIDisabled
}

// NewChat - 설정된 provider의 Chat을 circuit breaker로 감싸서 반환
// source가 nil이면 소스 코드 조회 도구 없이 동작한다.
func NewChat(ctx context.Context, cfg config.AIConfig, region string, source SourceLookup) (Chat, error) {
	var (
		backend Chat
		err     error
	)
	switch cfg.Provider {
	case "", "gemini":
		backend, err = NewGeminiChat(ctx, cfg, source)
	case "openai":
		backend, err = NewOpenAIChat(cfg, source)
	case "bedrock":
		backend, err = NewBedrockChat(ctx, cfg, region)
	case "none":
		log.Printf("[AI] Provider disabled, every report will use the fallback")
		return DisabledChat{}, nil
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewBreakerChat(cfg.Provider, backend, cfg.BreakerFailures, cfg.BreakerOpenSeconds), nil
}
