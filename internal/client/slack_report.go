// Slack 분석 보고서 메시지 관련 메서드 정의

package client

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/kube-rca/jvm-analyzer/internal/model"
)

// Slack attachment text 제한(3000자)보다 약간 작게 자른다
const slackReportMaxChars = 2900

// SendReport - 분석 완료 보고서를 채널로 전송
func (c *SlackClient) SendReport(ctx context.Context, n model.ReportNotification) error {
	if !c.IsConfigured() {
		return fmt.Errorf("slack bot token or channel ID not configured")
	}

	color := "#6f42c1" // purple for AI analysis
	title := fmt.Sprintf("🤖 JVM 분석 결과: %s", n.Pod)
	if n.Source == model.ReportSourceFallback {
		color = "#ffc107"
		title = fmt.Sprintf("⚠️ JVM 분석 결과 (fallback): %s", n.Pod)
	}

	fields := []SlackField{
		{Title: "Pod", Value: n.Pod, Short: true},
		{Title: "Pod IP", Value: n.PodIP, Short: true},
		{Title: "Datetime", Value: n.Datetime, Short: true},
		{Title: "Source", Value: n.Source, Short: true},
	}
	if n.ReportKey != "" {
		fields = append(fields, SlackField{Title: "Report", Value: n.ReportKey, Short: false})
	}

	msg := SlackMessage{
		Channel: c.channelID,
		Attachments: []SlackAttachment{
			{
				Color:    color,
				Title:    title,
				Text:     toSlackMarkdown(truncateRunes(n.Report, slackReportMaxChars)),
				Fields:   fields,
				Footer:   "jvm-analyzer " + n.RunID,
				Ts:       time.Now().Unix(),
				MrkdwnIn: []string{"text"},
			},
		},
	}

	_, err := c.send(ctx, msg)
	return err
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "\n…"
}
