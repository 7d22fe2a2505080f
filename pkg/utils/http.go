package utils

import (
	"context"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type PolicyCtxKey struct{}

// GetPolicyFromCtx returns the caller policy the auth middleware resolved.
func GetPolicyFromCtx(ctx context.Context) (*models.Policy, error) {
	p, ok := ctx.Value(PolicyCtxKey{}).(*models.Policy)
	if !ok || p == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return p, nil
}

func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func GetIPAddress(c echo.Context) string {
	return c.Request().RemoteAddr
}

// ReadRequest binds the request body into req and validates it.
func ReadRequest(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.NewValidation("", "invalid request payload")
	}
	return ValidateStruct(c.Request().Context(), req)
}

// ErrResponseWithLog logs err with the request id and writes the mapped status.
func ErrResponseWithLog(c echo.Context, fallback logger.Logger, err error) error {
	status := apperrors.HTTPStatus(err)
	log := logger.FromContext(c.Request().Context(), fallback)
	if status >= 500 {
		log.Errorw("request failed", "request_id", GetRequestID(c), "ip", GetIPAddress(c), "error", err)
	} else {
		log.Infow("request rejected", "request_id", GetRequestID(c), "status", status, "error", err)
	}
	return c.JSON(status, apperrors.Body(err))
}

// GetUUIDParam parses a path parameter as a uuid.
func GetUUIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.NewValidation(name, "invalid id")
	}
	return id, nil
}
