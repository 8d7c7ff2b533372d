package api

import (
	"Signalforge/internal/api/handler"
	"Signalforge/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// HandlersGroup 路由依赖的全部 handler 与鉴权
type HandlersGroup struct {
	JobHandler      *handler.JobHandler
	PipelineHandler *handler.PipelineHandler
	AccountHandler  *handler.AccountHandler
	ContentHandler  *handler.ContentHandler

	Tokens      middleware.TokenValidator
	HTTPMetrics *middleware.HTTPMetrics
	// MetricsHandler 为 nil 时不暴露 /metrics
	MetricsHandler gin.HandlerFunc
}
