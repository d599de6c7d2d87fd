// 분석 보고서 생성
//
// thread dump + 프로파일링 요약을 고정 rubric 프롬프트에 넣어 모델에 요청한다.
// 모델 호출이 어떤 이유로든 실패하면 원격 호출 없이 fallback 보고서를 만든다.

package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"

	"github.com/kube-rca/jvm-analyzer/internal/model"
)

const systemPrompt = `You are an expert in Java performance analysis with extensive experience diagnosing production issues.
Analyze thread dumps and profiling data to identify performance bottlenecks and provide actionable recommendations.
Be thorough, specific, and focus on practical solutions.`

const promptTemplate = `Analyze this Java thread dumps and profiling performance data and provide a focused report:

## Health Status
Rate: Healthy/Degraded/Critical with brief explanation

## Thread Analysis
- Total threads: X (X%% RUNNABLE, X%% WAITING, X%% BLOCKED)
- Key patterns: Describe what threads are doing and why
- Bottlenecks: Identify specific thread contention or blocking issues

## Top Issues (max 3)
For each critical issue found:
- **Problem**: Specific technical issue with affected components
- **Root Cause**: Why this is happening (code/config/resource issue)
- **Impact**: Quantified performance/stability effect
- **Fix**: Concrete action with implementation details

## Performance Hotspots
From flamegraph analysis:
- Top 3 CPU consumers with method names and sample counts
- Memory allocation patterns and potential leaks
- I/O bottlenecks (database, network, file operations)
- Lock contention areas with specific synchronization points

## Recommendations
**Immediate (< 1 day)**:
- 3 quick configuration or code changes

**Short-term (< 1 week)**:
- 3 architectural improvements with expected impact

**Thread Dump:**
%s

**Flamegraph Data:**
%s

Provide specific method names, class names, and quantified metrics where possible.
Keep response under 5KB but include enough detail for actionable insights.
`

const sourceToolInstructions = `
You have access to source code tools. Use them to look up the actual source code of methods that appear in the collapsed stacks and thread dump. Reference specific lines when explaining root causes and fixes.
`

// fallback 보고서의 thread dump 미리보기 길이 (rune)
const fallbackPreviewRunes = 500

// chatCompleter - client.Chat
type chatCompleter interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Report - 분석 보고서 본문과 출처(ai | fallback)
type Report struct {
	Text   string
	Source string
}

type ReportBuilder struct {
	chat          chatCompleter
	sourceEnabled bool
	now           func() time.Time
}

// NewReportBuilder - sourceEnabled면 프롬프트에 소스 코드 도구 안내를 추가
func NewReportBuilder(chat chatCompleter, sourceEnabled bool) *ReportBuilder {
	return &ReportBuilder{chat: chat, sourceEnabled: sourceEnabled, now: time.Now}
}

// Analyze - 항상 비어있지 않은 보고서를 반환 (에러 없음)
func (b *ReportBuilder) Analyze(ctx context.Context, threadDump, profiling string) Report {
	text, err := b.chat.Complete(ctx, systemPrompt, b.BuildPrompt(threadDump, profiling))
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("model returned an empty response")
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			log.Printf("[Report] Circuit breaker open, using fallback report")
		} else {
			log.Printf("[Report] AI analysis failed, using fallback report: %v", err)
		}
		return Report{
			Text:   FallbackReport(err, threadDump, profiling, b.now()),
			Source: model.ReportSourceFallback,
		}
	}
	return Report{Text: text, Source: model.ReportSourceAI}
}

// BuildPrompt - rubric에 두 입력을 넣은 사용자 프롬프트
func (b *ReportBuilder) BuildPrompt(threadDump, profiling string) string {
	prompt := fmt.Sprintf(promptTemplate, threadDump, profiling)
	if b.sourceEnabled {
		prompt += sourceToolInstructions
	}
	return prompt
}

// FallbackReport - 모델 없이 만드는 보고서. 원격 호출 금지
func FallbackReport(err error, threadDump, profiling string, now time.Time) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	var sb strings.Builder
	sb.WriteString("# JVM Analysis Report (Fallback)\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02T15:04:05"))
	sb.WriteString("## Status\n")
	sb.WriteString("AI analysis failed. Manual review required.\n\n")
	fmt.Fprintf(&sb, "## Error\n%s\n\n", msg)
	sb.WriteString("## Inputs\n")
	fmt.Fprintf(&sb, "- Thread dump size: %d characters\n", utf8.RuneCountInString(threadDump))
	fmt.Fprintf(&sb, "- Profiling data size: %d characters\n\n", utf8.RuneCountInString(profiling))
	sb.WriteString("## Thread Dump Preview\n```\n")
	sb.WriteString(previewRunes(threadDump, fallbackPreviewRunes))
	sb.WriteString("\n```\n\n")
	sb.WriteString("Review the stored thread dump and profiling artifacts manually or retry analysis.\n")
	return sb.String()
}

func previewRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
