package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/amankumarsingh77/clipflow/internal/models"
	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/logger"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/labstack/echo/v4"
)

const tokenCookie = "jwt-token"

// AuthJWTMiddleware resolves the caller policy from a bearer token or the
// jwt-token cookie and stores it on the request context.
func (mw *MiddlewareManager) AuthJWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, err := bearerToken(c)
		if err != nil {
			return utils.ErrResponseWithLog(c, mw.logger, err)
		}
		policy, err := mw.policyFromToken(token)
		if err != nil {
			mw.logger.Warnw("auth middleware rejected token", "request_id", utils.GetRequestID(c), "error", err)
			return utils.ErrResponseWithLog(c, mw.logger, apperrors.ErrUnauthorized)
		}

		ctx := context.WithValue(c.Request().Context(), utils.PolicyCtxKey{}, policy)
		reqLog := logger.FromContext(ctx, mw.logger).With("user_id", policy.UserID.String(), "tier", policy.Tier.Name)
		ctx = logger.WithContext(ctx, reqLog)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, error) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", apperrors.ErrUnauthorized
		}
		return parts[1], nil
	}
	cookie, err := c.Cookie(tokenCookie)
	if err != nil || cookie.Value == "" {
		return "", apperrors.ErrUnauthorized
	}
	return cookie.Value, nil
}

func (mw *MiddlewareManager) policyFromToken(token string) (*models.Policy, error) {
	claims, err := utils.ValidateToken(token, mw.cfg.Server.JwtSecretKey)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, errors.New("invalid subject claim")
	}
	for _, tier := range mw.ladder {
		if tier.Name == claims.Tier {
			return models.NewPolicy(userID, tier, mw.ladder), nil
		}
	}
	return nil, errors.New("unknown tier " + claims.Tier)
}
