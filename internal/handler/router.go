package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter - 라우팅 등록
func NewRouter(alerts *AlertHandler, analyses *AnalysisHandler) *gin.Engine {
	router := gin.Default()

	// 건강 체크 및 테스트용 기본 엔드포인트
	router.GET("/ping", Ping)
	router.GET("/", Root)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/openapi.json", OpenAPIDoc)

	// Alertmanager receiver 설정에 따라 두 경로 모두 허용
	router.POST("/webhook", alerts.Webhook)
	router.POST("/webhook/alertmanager", alerts.Webhook)

	api := router.Group("/api/v1")
	api.GET("/analyses", analyses.ListAnalyses)

	return router
}
