package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// videoSecurityHeadersMiddleware hardens every response on the video
// resource path, success or failure: no caching anywhere, no MIME sniffing,
// inline rendering, and cross-origin access scoped to the configured
// frontend origin. An unset origin falls back to permissive only in debug.
func videoSecurityHeadersMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			h := ctx.Response().Header()
			h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
			h.Set("Pragma", "no-cache")
			h.Set("Content-Disposition", "inline")
			h.Set(echo.HeaderXContentTypeOptions, "nosniff")

			origin := core.Conf.FrontendBaseURL
			if origin == "" && core.Conf.Debug {
				origin = "*"
			}
			if origin != "" {
				h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			}

			return next(ctx)
		}
	}
}
