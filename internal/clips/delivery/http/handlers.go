package http

import (
	"net/http"

	"github.com/amankumarsingh77/clipflow/internal/clips"
	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/labstack/echo/v4"
)

type clipHandler struct {
	clipsUC clips.UseCase
	logger  logger.Logger
}

func NewClipHandler(clipsUC clips.UseCase, log logger.Logger) clips.Handler {
	return &clipHandler{
		clipsUC: clipsUC,
		logger:  log,
	}
}

func (h *clipHandler) GetClip() echo.HandlerFunc {
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
		clip, err := h.clipsUC.GetClip(ctx, policy, clipID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, clip)
	}
}

func (h *clipHandler) ListClips() echo.HandlerFunc {
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
		list, err := h.clipsUC.ListClips(ctx, policy, videoID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func (h *clipHandler) Generate() echo.HandlerFunc {
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
		job, err := h.clipsUC.Generate(ctx, policy, clipID)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusAccepted, job)
	}
}

func (h *clipHandler) TriggerOperation() echo.HandlerFunc {
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
		input := &models.TriggerOperationInput{}
		if c.Request().ContentLength != 0 {
			if err := utils.ReadRequest(c, input); err != nil {
				return utils.ErrResponseWithLog(c, h.logger, err)
			}
		}
		res, err := h.clipsUC.TriggerOperation(ctx, policy, clipID, models.OperationType(c.Param("op")), input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(triggerStatus(res), res)
	}
}

func (h *clipHandler) Export() echo.HandlerFunc {
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
		input := &models.ExportInput{}
		if c.Request().ContentLength != 0 {
			if err := utils.ReadRequest(c, input); err != nil {
				return utils.ErrResponseWithLog(c, h.logger, err)
			}
		}
		res, err := h.clipsUC.Export(ctx, policy, clipID, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(triggerStatus(res), res)
	}
}

func (h *clipHandler) ScheduleExports() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.ScheduleExportsInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		scheduled, err := h.clipsUC.ScheduleExports(ctx, policy, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusAccepted, scheduled)
	}
}

func (h *clipHandler) RescheduleExport() echo.HandlerFunc {
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
		input := &models.RescheduleExportInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		res, err := h.clipsUC.RescheduleExport(ctx, policy, clipID, input.At)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func (h *clipHandler) CancelOperation() echo.HandlerFunc {
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
		outcome, err := h.clipsUC.CancelOperation(ctx, policy, clipID, models.OperationType(c.Param("op")))
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, map[string]models.RemoveOutcome{"outcome": outcome})
	}
}

// triggerStatus is 200 for a cached result and 202 while work is queued.
func triggerStatus(res *models.TriggerResult) int {
	if res.Cached {
		return http.StatusOK
	}
	return http.StatusAccepted
}
