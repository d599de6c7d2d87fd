// Alertmanager 웹훅 요청을 처리하는 핸들러
//
// 요청 흐름:
//  1. Alertmanager가 POST /webhook (또는 /webhook/alertmanager)로 알림 전송
//  2. JSON 페이로드를 AlertmanagerWebhook 구조체로 파싱
//  3. pod / instance 라벨에서 PodAlert 추출 (없으면 버림)
//  4. AnalyzerService로 전달하고 처리 개수를 응답

package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kube-rca/jvm-analyzer/internal/metrics"
	"github.com/kube-rca/jvm-analyzer/internal/model"
)

// alertDispatcher - service.AnalyzerService
type alertDispatcher interface {
	Dispatch(ctx context.Context, alerts []model.PodAlert) int
	DispatchAsync(ctx context.Context, alerts []model.PodAlert) int
}

// Alert 핸들러 구조체 정의
type AlertHandler struct {
	analyzer alertDispatcher
	async    bool
}

// Alert 핸들러 객체 생성
// async면 파이프라인 완료를 기다리지 않고 접수 개수를 응답한다.
func NewAlertHandler(analyzer alertDispatcher, async bool) *AlertHandler {
	return &AlertHandler{
		analyzer: analyzer,
		async:    async,
	}
}

// Webhook godoc
// @Summary Receive Alertmanager webhook
// @Description Runs the JVM analysis pipeline for every alert with pod and instance labels.
// @Tags alerts
// @Accept json
// @Produce json
// @Param request body model.AlertmanagerWebhook true "Alertmanager webhook payload"
// @Success 200 {object} model.WebhookResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /webhook [post]
func (h *AlertHandler) Webhook(c *gin.Context) {
	var webhook model.AlertmanagerWebhook

	// 1. JSON 페이로드 파싱
	if err := c.ShouldBindJSON(&webhook); err != nil {
		log.Printf("Failed to parse webhook: %v", err)
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid payload"})
		return
	}

	// 2. 웹훅 메타데이터 로깅
	log.Printf("Received alert webhook: status=%s, alertCount=%d, receiver=%s",
		webhook.Status, len(webhook.Alerts), webhook.Receiver)

	// 3. 분석 대상 추출
	alerts, dropped := webhook.PodAlerts()
	if dropped > 0 {
		log.Printf("Dropped %d alerts without pod or instance label", dropped)
		metrics.AlertsDroppedTotal.Add(float64(dropped))
	}
	for _, a := range alerts {
		log.Printf("  Alert: pod=%s, podIP=%s", a.Pod, a.PodIP)
	}

	// 4. 파이프라인 실행
	if h.async {
		count := h.analyzer.DispatchAsync(c.Request.Context(), alerts)
		c.JSON(http.StatusOK, model.WebhookResponse{Message: "Accepted alerts for processing", Count: count})
		return
	}

	// 클라이언트 연결이 끊겨도 진행 중인 파이프라인은 취소하지 않는다
	count := h.analyzer.Dispatch(context.WithoutCancel(c.Request.Context()), alerts)
	c.JSON(http.StatusOK, model.WebhookResponse{Message: "Processed alerts", Count: count})
}
