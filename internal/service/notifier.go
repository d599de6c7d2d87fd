// 분석 완료 알림 전송
//
// Slack, 외부 웹훅 두 채널을 지원한다. 각 채널은 독립적으로 동작하며
// 실패해도 로그만 남기고 파이프라인 결과에 영향을 주지 않는다.

package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kube-rca/jvm-analyzer/internal/config"
	"github.com/kube-rca/jvm-analyzer/internal/model"
	tmpl "github.com/kube-rca/jvm-analyzer/internal/template"
)

// Notifier - 분석 결과 알림 채널
type Notifier interface {
	Notify(ctx context.Context, n model.ReportNotification) error
}

// slackReporter - client.SlackClient
type slackReporter interface {
	SendReport(ctx context.Context, n model.ReportNotification) error
}

// SlackNotifier - Slack chat.postMessage 로 보고서 전송
type SlackNotifier struct {
	slack slackReporter
}

func NewSlackNotifier(slack slackReporter) *SlackNotifier {
	return &SlackNotifier{slack: slack}
}

func (n *SlackNotifier) Notify(ctx context.Context, r model.ReportNotification) error {
	return n.slack.SendReport(ctx, r)
}

// defaultWebhookBody - REPORT_WEBHOOK_BODY가 없을 때 사용하는 본문
const defaultWebhookBody = `{"run_id":"{{report.run_id}}","pod":"{{report.pod}}","pod_ip":"{{report.pod_ip}}",` +
	`"datetime":"{{report.datetime}}","source":"{{report.source}}","key":"{{report.key}}",` +
	`"summary":"{{report.summary}}","created_at":"{{report.created_at}}"}`

// WebhookNotifier - 설정된 외부 웹훅으로 렌더링된 body를 전송
type WebhookNotifier struct {
	target     model.WebhookTarget
	httpClient *http.Client
	now        func() time.Time
}

// NewWebhookNotifier - URL이 비어 있으면 nil
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	if cfg.URL == "" {
		return nil
	}
	target := model.WebhookTarget{URL: cfg.URL, Method: strings.ToUpper(cfg.Method), Body: cfg.Body}
	if target.Method == "" {
		target.Method = http.MethodPost
	}
	if target.Body == "" {
		target.Body = defaultWebhookBody
	}
	// map 순회 순서 고정
	names := make([]string, 0, len(cfg.Headers))
	for k := range cfg.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		target.Headers = append(target.Headers, model.WebhookHeader{Key: k, Value: cfg.Headers[k]})
	}

	return &WebhookNotifier{
		target:     target,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, r model.ReportNotification) error {
	data := tmpl.ReportDataFromNotification(r, n.now())
	rendered := tmpl.RenderBody(n.target.Body, &data, n.isJSON())

	if err := n.sendHTTP(ctx, rendered); err != nil {
		return fmt.Errorf("deliver to %s: %w", n.target.URL, err)
	}
	log.Printf("[WebhookDelivery] Delivered report for pod=%s to %s", r.Pod, n.target.URL)
	return nil
}

// isJSON - Content-Type이 없거나 JSON이면 값 이스케이프
func (n *WebhookNotifier) isJSON() bool {
	for _, h := range n.target.Headers {
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			return strings.Contains(strings.ToLower(h.Value), "json")
		}
	}
	return true
}

// sendHTTP - 단일 웹훅으로 HTTP 요청 전송
func (n *WebhookNotifier) sendHTTP(ctx context.Context, body string) error {
	req, err := http.NewRequestWithContext(ctx, n.target.Method, n.target.URL, bytes.NewBufferString(body))
	if err != nil {
		return err
	}

	// Content-Type 기본값 설정 (없으면 application/json)
	hasContentType := false
	for _, h := range n.target.Headers {
		if h.Key != "" {
			req.Header.Set(h.Key, h.Value)
		}
		if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
			hasContentType = true
		}
	}
	if !hasContentType {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
