package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/health"
)

func registerHealthAPI(g *echo.Group, checker *health.Checker, logger core.Logger) {
	g.GET("/health", func(ctx echo.Context) error {
		report := checker.Check(ctx.Request().Context(), healthCheckTimeout)
		for name, err := range report.Failures {
			logger.Warn("health check failed: "+name, err)
		}
		code := http.StatusOK
		if !report.Healthy() {
			code = http.StatusServiceUnavailable
		}
		ctx.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		return ctx.JSON(code, report)
	})
}
