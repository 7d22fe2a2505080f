package server

import (
	"net/http"

	clipsHttp "github.com/amankumarsingh77/clipflow/internal/clips/delivery/http"
	clipsRepository "github.com/amankumarsingh77/clipflow/internal/clips/repository"
	clipsUsecase "github.com/amankumarsingh77/clipflow/internal/clips/usecase"
	jobsRepository "github.com/amankumarsingh77/clipflow/internal/jobs/repository"
	jobsUsecase "github.com/amankumarsingh77/clipflow/internal/jobs/usecase"
	"github.com/amankumarsingh77/clipflow/internal/middleware"
	statusHttp "github.com/amankumarsingh77/clipflow/internal/status/delivery/http"
	statusUsecase "github.com/amankumarsingh77/clipflow/internal/status/usecase"
	storageRepository "github.com/amankumarsingh77/clipflow/internal/storage/repository"
	uploadsHttp "github.com/amankumarsingh77/clipflow/internal/uploads/delivery/http"
	uploadsUsecase "github.com/amankumarsingh77/clipflow/internal/uploads/usecase"
	videoHttp "github.com/amankumarsingh77/clipflow/internal/videofiles/delivery/http"
	videoRepository "github.com/amankumarsingh77/clipflow/internal/videofiles/repository"
	videoUsecase "github.com/amankumarsingh77/clipflow/internal/videofiles/usecase"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/labstack/echo/v4"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	vRepo := videoRepository.NewVideoRepo(s.db)
	cRepo := clipsRepository.NewClipRepo(s.db)
	store := storageRepository.NewAwsRepository(s.s3Client, s.preSignClient, s.cfg.S3.PublicBaseURL)
	queue := jobsRepository.NewJobsRedisRepo(s.redisClient, s.cfg.Queue)

	jobsUC := jobsUsecase.NewJobsUseCase(s.cfg, queue, s.logger)
	uploadUC := uploadsUsecase.NewUploadUseCase(s.cfg, vRepo, store, jobsUC, s.logger)
	videoUC := videoUsecase.NewVideoUseCase(s.cfg, vRepo, cRepo, store, jobsUC, s.logger)
	clipsUC := clipsUsecase.NewClipsUseCase(s.cfg, cRepo, store, jobsUC, s.logger)
	statusUC := statusUsecase.NewStatusUseCase(vRepo, cRepo, jobsUC, s.logger)

	uploadHandlers := uploadsHttp.NewUploadHandler(uploadUC, s.logger)
	videoHandlers := videoHttp.NewVideoHandler(videoUC, s.logger)
	clipHandlers := clipsHttp.NewClipHandler(clipsUC, s.logger)
	statusHandlers := statusHttp.NewStatusHandler(statusUC, s.logger)

	mw := middleware.NewMiddlewareManager(s.cfg, s.cfg.Server.AllowedOrigins, s.logger)
	e.Use(mw.RequestLoggerMiddleware())

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")
	uploadGroup := v1.Group("/uploads")
	videoGroup := v1.Group("/videos")
	clipGroup := v1.Group("/clips")

	uploadsHttp.MapUploadRoutes(uploadGroup, uploadHandlers, mw)
	videoHttp.MapVideoRoutes(videoGroup, videoHandlers, statusHandlers, mw)
	clipsHttp.MapClipRoutes(clipGroup, clipHandlers, statusHandlers, mw)
	health.GET("", func(c echo.Context) error {
		ctx := c.Request().Context()
		checks := map[string]string{"status": "OK", "postgres": "OK", "redis": "OK"}
		code := http.StatusOK
		if err := s.db.PingContext(ctx); err != nil {
			checks["postgres"], checks["status"], code = err.Error(), "DEGRADED", http.StatusServiceUnavailable
		}
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"], checks["status"], code = err.Error(), "DEGRADED", http.StatusServiceUnavailable
		}
		s.logger.Debugf("Health check RequestID: %s", utils.GetRequestID(c))
		return c.JSON(code, checks)
	})
	return nil
}
