package router

import (
	"context"

	"cv-intake-go/internal/api/handler"
	"cv-intake-go/internal/config"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes 注册 API 路由
// 健康检查不鉴权；其余接口在配置了API Key时走Bearer鉴权。
func RegisterRoutes(h *server.Hertz, cfg *config.Config, intakeHandler *handler.IntakeHandler) {
	api := h.Group("/api/v1")
	if cfg.Server.APIKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithFilter(func(c context.Context, ctx *app.RequestContext) bool {
				return string(ctx.Path()) == "/api/v1/health"
			}),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == cfg.Server.APIKey, nil
			}),
			keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
				ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "无效的API Key"})
			}),
		))
	}

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api.POST("/cv/upload", intakeHandler.HandleCVUpload)
	api.POST("/cv/bulk-process", intakeHandler.HandleBulkProcess)
	api.GET("/cv/documents", intakeHandler.HandleListDocuments)
	api.POST("/cv/documents/:document_uuid/extract", intakeHandler.HandleRetryExtraction)
	api.GET("/cv/documents/:document_uuid/download", intakeHandler.HandleDocumentDownloadURL)
	api.DELETE("/cv/documents/:document_uuid", intakeHandler.HandleDeleteDocument)

	api.GET("/cv/batch/:session_id", intakeHandler.HandleGetBatch)
	api.POST("/cv/batch/:session_id/create-all", intakeHandler.HandleBatchCreateAll)
	api.POST("/cv/batch/:session_id/items/:index/create", intakeHandler.HandleItemCreate)

	api.POST("/candidates", intakeHandler.HandleCreateCandidate)
}
