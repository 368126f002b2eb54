package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/dashboard"
	"github.com/trezcool/studypal/core/privacy"
	"github.com/trezcool/studypal/core/user"
)

type privacyApi struct {
	conf      *core.Config
	svc       *privacy.Service
	usrSvc    *user.Service
	dashboard *dashboard.Service
	validate  *validator.Validate
}

func registerPrivacyAPI(g *echo.Group, opts *Options) {
	api := privacyApi{
		conf:      opts.Conf,
		svc:       opts.PrivacySvc,
		usrSvc:    opts.UserSvc,
		dashboard: opts.DashboardSvc,
		validate:  opts.Validate,
	}

	pg := g.Group("/privacy")
	pg.GET("/export", api.export)
	pg.DELETE("/account", api.deleteAccount)
}

func (api *privacyApi) export(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	exp, err := api.svc.Export(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "exporting user data")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exp.Filename()))
	return ctx.JSON(http.StatusOK, exp)
}

func (api *privacyApi) deleteAccount(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data privacy.DeleteAccount
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeleteAccount")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	if err = api.svc.DeleteAccount(ctx.Request().Context(), usr, data.Password); err != nil {
		return errors.Wrap(err, "deleting account")
	}
	api.dashboard.Invalidate(ctx.Request().Context(), usr.ID)
	clearSessionCookie(ctx, api.conf)
	return ctx.NoContent(http.StatusNoContent)
}
