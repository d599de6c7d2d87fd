package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kube-rca/jvm-analyzer/internal/model"
)

// 헬스체크 엔드포인트
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// 루트 엔드포인트
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.RootResponse{
		Status:  "ok",
		Message: "jvm-analyzer is running",
	})
}
