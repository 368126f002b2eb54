package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core/achievement"
	"github.com/trezcool/studypal/core/dashboard"
	"github.com/trezcool/studypal/core/user"
)

type progressApi struct {
	achievements *achievement.Service
	dashboard    *dashboard.Service
	usrSvc       *user.Service
}

func newProgressApi(opts *Options) *progressApi {
	return &progressApi{
		achievements: opts.AchievementSvc,
		dashboard:    opts.DashboardSvc,
		usrSvc:       opts.UserSvc,
	}
}

func registerAchievementAPI(g *echo.Group, opts *Options) {
	api := newProgressApi(opts)
	g.GET("/achievements", api.queryAchievements)
}

func registerDashboardAPI(g *echo.Group, opts *Options) {
	api := newProgressApi(opts)
	g.GET("/dashboard", api.retrieveDashboard)
}

// queryAchievements lists the whole catalogue, flagging what the User unlocked.
func (api *progressApi) queryAchievements(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	statuses, err := api.achievements.Statuses(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying achievements")
	}
	return ctx.JSON(http.StatusOK, statuses)
}

func (api *progressApi) retrieveDashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	dash, err := api.dashboard.Get(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
