package middleware

import (
	"net/http"

	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/amankumarsingh77/clipflow/pkg/utils"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// UploadRateLimiter throttles presign and session calls per caller. It must run
// after AuthJWTMiddleware so the caller is known; anonymous calls key on IP.
func (mw *MiddlewareManager) UploadRateLimiter() echo.MiddlewareFunc {
	limit := mw.cfg.Server.UploadRateLimit
	if limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	burst := mw.cfg.Server.UploadRateBurst
	if burst < 1 {
		burst = int(limit) + 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(limit),
		Burst: burst,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if policy, err := utils.GetPolicyFromCtx(c.Request().Context()); err == nil {
				return policy.UserID.String(), nil
			}
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, apperrors.Body(err))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			mw.logger.Infow("upload rate limited", "identifier", identifier, "request_id", utils.GetRequestID(c))
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		},
	})
}
