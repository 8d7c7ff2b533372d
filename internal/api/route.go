package api

import (
	"Signalforge/internal/api/config"
	"Signalforge/internal/api/middleware"
	"Signalforge/internal/pkg/logger"
	"Signalforge/internal/pkg/security"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup, stash config.LogstashConfig) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware("/metrics"))
	r.Use(middleware.CORSMiddleware())
	if group.HTTPMetrics != nil {
		r.Use(group.HTTPMetrics.Middleware())
	}
	logger.SetupGin(r, stash)

	if group.MetricsHandler != nil {
		r.GET("/metrics", group.MetricsHandler)
	}

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		authGroup := apiGroup.Group("")
		authGroup.Use(middleware.AuthMiddleware(group.Tokens))

		// 只读：运营与管理员
		readGroup := authGroup.Group("")
		readGroup.Use(middleware.CheckRoles(security.RoleOperator, security.RoleAdmin))
		{
			readGroup.GET("/jobs", group.JobHandler.ListJobs)
			readGroup.GET("/pipeline/posting", group.PipelineHandler.GetPosting)
			readGroup.GET("/analytics/summary", group.ContentHandler.Summary)
			readGroup.GET("/audit", group.ContentHandler.ListAudit)

			readGroup.GET("/accounts", group.AccountHandler.ListAccounts)
			readGroup.GET("/accounts/:account_id/schedule", group.AccountHandler.GetSchedule)
			readGroup.GET("/accounts/:account_id/performance", group.AccountHandler.GetPerformance)

			readGroup.GET("/sources", group.ContentHandler.ListSources)
			readGroup.GET("/ideas", group.ContentHandler.ListIdeas)
			readGroup.GET("/drafts", group.ContentHandler.ListDrafts)
			readGroup.GET("/posts", group.ContentHandler.ListPosts)
		}

		// 触发任务与修改配置：仅管理员
		adminGroup := authGroup.Group("")
		adminGroup.Use(middleware.CheckRoles(security.RoleAdmin))
		{
			adminGroup.POST("/jobs/:name/run", group.JobHandler.RunJob)
			adminGroup.PUT("/pipeline/posting", group.PipelineHandler.SetPosting)

			adminGroup.POST("/accounts", group.AccountHandler.CreateAccount)
			adminGroup.PUT("/accounts/:account_id", group.AccountHandler.UpdateAccount)
			adminGroup.POST("/sources", group.ContentHandler.CreateSource)
		}
	}

	return r
}
