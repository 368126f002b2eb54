package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core/feedback"
	"github.com/trezcool/studypal/core/studysession"
	"github.com/trezcool/studypal/core/user"
)

type adminApi struct {
	usrSvc      *user.Service
	sessionSvc  *studysession.Service
	feedbackSvc *feedback.Service
}

func registerAdminAPI(g *echo.Group, opts *Options, founderOnly echo.MiddlewareFunc) {
	api := adminApi{
		usrSvc:      opts.UserSvc,
		sessionSvc:  opts.SessionSvc,
		feedbackSvc: opts.FeedbackSvc,
	}

	ag := g.Group("/admin", founderOnly)
	ag.GET("/stats", api.stats)
}

func (api *adminApi) stats(ctx echo.Context) error {
	var (
		stats StatsResponse
		err   error
	)
	if stats.Users, stats.ActiveUsers, err = api.usrSvc.Count(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "counting users")
	}
	if stats.Sessions, stats.TotalMinutes, err = api.sessionSvc.Totals(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "summing study sessions")
	}
	if stats.Feedback, err = api.feedbackSvc.Summarize(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "summarizing feedback")
	}
	stats.OpenFeedback = stats.Feedback.Open
	return ctx.JSON(http.StatusOK, stats)
}

type StatsResponse struct {
	Users        int              `json:"users"`
	ActiveUsers  int              `json:"active_users"`
	Sessions     int              `json:"sessions"`
	TotalMinutes int              `json:"total_minutes"`
	Feedback     feedback.Summary `json:"feedback"`
	OpenFeedback int              `json:"open_feedback"`
}
