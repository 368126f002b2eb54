package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core/feedback"
	"github.com/trezcool/studypal/core/user"
	metricsvc "github.com/trezcool/studypal/services/metrics"
)

type feedbackApi struct {
	svc      *feedback.Service
	usrSvc   *user.Service
	metrics  *metricsvc.Collector
	validate *validator.Validate
}

func registerFeedbackAPI(g *echo.Group, opts *Options, adminOnly echo.MiddlewareFunc) {
	api := feedbackApi{
		svc:      opts.FeedbackSvc,
		usrSvc:   opts.UserSvc,
		metrics:  opts.Metrics,
		validate: opts.Validate,
	}

	fg := g.Group("/feedback")
	fg.POST("", api.create)
	fg.GET("/mine", api.queryMine)
	fg.GET("", api.query, adminOnly)
	fg.PATCH("/:id", api.updateStatus, adminOnly)
}

func (api *feedbackApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data feedback.NewFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	fb, err := api.svc.Create(ctx.Request().Context(), usr.ID, usr.Email, data)
	if err != nil {
		return errors.Wrap(err, "creating feedback")
	}
	api.metrics.RecordFeedback(fb.Priority)
	return ctx.JSON(http.StatusCreated, fb)
}

func (api *feedbackApi) queryMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	fbs, err := api.svc.QueryByUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying user feedback")
	}
	if fbs == nil {
		fbs = []feedback.Feedback{}
	}
	return ctx.JSON(http.StatusOK, fbs)
}

func (api *feedbackApi) query(ctx echo.Context) error {
	filter := feedback.QueryFilter{
		Status:   ctx.QueryParam("status"),
		Priority: ctx.QueryParam("priority"),
		Type:     ctx.QueryParam("type"),
	}

	fbs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	if fbs == nil {
		fbs = []feedback.Feedback{}
	}
	return ctx.JSON(http.StatusOK, fbs)
}

func (api *feedbackApi) updateStatus(ctx echo.Context) error {
	var data feedback.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fb, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting feedback status")
	}
	return ctx.JSON(http.StatusOK, fb)
}
