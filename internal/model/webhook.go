package model

// WebhookHeader - 헤더 키-값 쌍
type WebhookHeader struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// WebhookTarget - 분석 완료 알림을 보낼 외부 웹훅
// Body는 {{report.*}} 플레이스홀더를 포함할 수 있다.
type WebhookTarget struct {
	URL     string          `json:"url" yaml:"url"`
	Method  string          `json:"method" yaml:"method"`
	Headers []WebhookHeader `json:"headers" yaml:"headers"`
	Body    string          `json:"body" yaml:"body"`
}

// ReportNotification - 알림 채널(Slack, 웹훅)로 전달되는 분석 결과 요약
type ReportNotification struct {
	RunID     string
	Pod       string
	PodIP     string
	Datetime  string
	Source    string
	Report    string
	ReportKey string
}
