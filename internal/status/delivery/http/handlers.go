package http

import (
	"net/http"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/status"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/labstack/echo/v4"
)

type statusHandler struct {
	statusUC status.UseCase
	logger   logger.Logger
}

func NewStatusHandler(statusUC status.UseCase, log logger.Logger) status.Handler {
	return &statusHandler{
		statusUC: statusUC,
		logger:   log,
	}
}

func (h *statusHandler) GetVideoStatus() echo.HandlerFunc {
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
		view, err := h.statusUC.GetVideoStatus(ctx, policy, videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func (h *statusHandler) GetClipStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		clipID, err := utils.GetUUIDParam(c, "clip_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		view, err := h.statusUC.GetClipStatus(ctx, policy, clipID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}

func (h *statusHandler) GetOperationStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		clipID, err := utils.GetUUIDParam(c, "clip_id")
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		op := models.OperationType(c.Param("op"))
		view, err := h.statusUC.GetOperationStatus(ctx, policy, clipID, op)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, view)
	}
}
