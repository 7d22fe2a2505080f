package http

import (
	"github.com/amankumarsingh77/clipflow/internal/clips"
	"github.com/amankumarsingh77/clipflow/internal/middleware"
	"github.com/amankumarsingh77/clipflow/internal/status"
	"github.com/labstack/echo/v4"
)

func MapClipRoutes(clipGroup *echo.Group, h clips.Handler, sh status.Handler, mw *middleware.MiddlewareManager) {
	clipGroup.Use(mw.AuthJWTMiddleware)
	clipGroup.GET("/videos/:video_id", h.ListClips())
	clipGroup.POST("/exports/schedule", h.ScheduleExports())
	clipGroup.GET("/:clip_id", h.GetClip())
	clipGroup.GET("/:clip_id/status", sh.GetClipStatus())
	clipGroup.POST("/:clip_id/generate", h.Generate())
	clipGroup.POST("/:clip_id/export", h.Export())
	clipGroup.POST("/:clip_id/export/reschedule", h.RescheduleExport())
	clipGroup.POST("/:clip_id/operations/:op", h.TriggerOperation())
	clipGroup.GET("/:clip_id/operations/:op", sh.GetOperationStatus())
	clipGroup.DELETE("/:clip_id/operations/:op", h.CancelOperation())
}
