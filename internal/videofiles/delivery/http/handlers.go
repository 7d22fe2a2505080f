package http

import (
	"net/http"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/videofiles"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/labstack/echo/v4"
)

type videoHandler struct {
	videoUC videofiles.UseCase
	logger  logger.Logger
}

func NewVideoHandler(videoUC videofiles.UseCase, log logger.Logger) videofiles.Handler {
	return &videoHandler{
		videoUC: videoUC,
		logger:  log,
	}
}

func (h *videoHandler) ImportVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.ImportVideoInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		res, err := h.videoUC.CreateFromSource(ctx, policy, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusCreated, res)
	}
}

func (h *videoHandler) GetVideoByID() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		videoID, err := utils.GetUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		video, err := h.videoUC.GetVideo(ctx, policy, videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, video)
	}
}

func (h *videoHandler) ListVideos() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		pagination, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		videos, err := h.videoUC.ListVideos(ctx, policy, pagination)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, videos)
	}
}

func (h *videoHandler) Configure() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		videoID, err := utils.GetUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.VideoConfig{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		res, err := h.videoUC.Configure(ctx, policy, videoID, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusAccepted, res)
	}
}

func (h *videoHandler) GetDownloadURL() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		videoID, err := utils.GetUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		url, err := h.videoUC.GetDownloadURL(ctx, policy, videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, url)
	}
}

func (h *videoHandler) DeleteVideo() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		videoID, err := utils.GetUUIDParam(c, "video_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		res, err := h.videoUC.DeleteVideo(ctx, policy, videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}
