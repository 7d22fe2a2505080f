package http

import (
	"github.com/amankumarsingh77/clipflow/internal/middleware"
	"github.com/amankumarsingh77/clipflow/internal/uploads"
	"github.com/labstack/echo/v4"
)

func MapUploadRoutes(uploadGroup *echo.Group, h uploads.Handler, mw *middleware.MiddlewareManager) {
	uploadGroup.Use(mw.AuthJWTMiddleware, mw.UploadRateLimiter())
	uploadGroup.POST("/init", h.InitUpload())
	uploadGroup.POST("/part-url", h.GetPartURL())
	uploadGroup.POST("/part-urls", h.GetBatchPartURLs())
	uploadGroup.GET("/parts", h.ListParts())
	uploadGroup.POST("/resume", h.ResumeUpload())
	uploadGroup.POST("/complete", h.CompleteUpload())
	uploadGroup.POST("/abort", h.AbortUpload())
}
