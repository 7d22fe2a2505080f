package http

import (
	"net/http"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/internal/uploads"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/labstack/echo/v4"
)

type uploadHandler struct {
	uploadUC uploads.UseCase
	logger   logger.Logger
}

func NewUploadHandler(uploadUC uploads.UseCase, log logger.Logger) uploads.Handler {
	return &uploadHandler{
		uploadUC: uploadUC,
		logger:   log,
	}
}

func (h *uploadHandler) InitUpload() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.InitUploadInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		res, err := h.uploadUC.InitUpload(ctx, policy, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusCreated, res)
	}
}

func (h *uploadHandler) GetPartURL() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.PartURLInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		url, err := h.uploadUC.GetPartURL(ctx, policy, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, url)
	}
}

func (h *uploadHandler) GetBatchPartURLs() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.BatchPartURLInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		urls, err := h.uploadUC.GetBatchPartURLs(ctx, policy, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"part_urls": urls})
	}
}

func (h *uploadHandler) ListParts() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		sessionID, key := c.QueryParam("session_id"), c.QueryParam("storage_key")
		if sessionID == "" || key == "" {
			return utils.ErrResponseWithLog(c, h.logger, apperrors.NewValidation("session_id", "session_id and storage_key query params are required"))
		}
		parts, err := h.uploadUC.ListUploadedParts(ctx, policy, sessionID, key)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"parts": parts})
	}
}

func (h *uploadHandler) ResumeUpload() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.ResumeUploadInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		res, err := h.uploadUC.ResumeUpload(ctx, policy, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func (h *uploadHandler) CompleteUpload() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.CompleteUploadInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		res, err := h.uploadUC.CompleteUpload(ctx, policy, input)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func (h *uploadHandler) AbortUpload() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		policy, err := utils.GetPolicyFromCtx(ctx)
		if err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		input := &models.AbortUploadInput{}
		if err := utils.ReadRequest(c, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		if err := h.uploadUC.AbortUpload(ctx, policy, input); err != nil {
			return utils.ErrResponseWithLog(c, h.logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
