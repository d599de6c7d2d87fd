package model

type ErrorResponse struct {
	Error string `json:"error"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// WebhookResponse - POST /webhook 응답
// Count: 동기 모드에서는 완료된 파이프라인 수, 비동기 모드에서는 접수된 알림 수
type WebhookResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type AnalysisListResponse struct {
	Status string        `json:"status"`
	Data   []AnalysisRun `json:"data"`
}
