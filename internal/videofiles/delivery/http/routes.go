package http

import (
	"github.com/amankumarsingh77/clipflow/internal/middleware"
	"github.com/amankumarsingh77/clipflow/internal/status"
	"github.com/amankumarsingh77/clipflow/internal/videofiles"
	"github.com/labstack/echo/v4"
)

func MapVideoRoutes(videoGroup *echo.Group, h videofiles.Handler, sh status.Handler, mw *middleware.MiddlewareManager) {
	videoGroup.Use(mw.AuthJWTMiddleware)
	videoGroup.POST("/import", h.ImportVideo())
	videoGroup.GET("", h.ListVideos())
	videoGroup.GET("/:video_id", h.GetVideoByID())
	videoGroup.POST("/:video_id/configure", h.Configure())
	videoGroup.GET("/:video_id/status", sh.GetVideoStatus())
	videoGroup.GET("/:video_id/download", h.GetDownloadURL())
	videoGroup.DELETE("/:video_id", h.DeleteVideo())
}
