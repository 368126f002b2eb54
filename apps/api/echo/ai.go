package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core/ai"
	"github.com/trezcool/studypal/core/user"
	metricsvc "github.com/trezcool/studypal/services/metrics"
)

type aiApi struct {
	svc      *ai.Service
	usrSvc   *user.Service
	metrics  *metricsvc.Collector
	validate *validator.Validate
}

func registerAIAPI(g *echo.Group, opts *Options, limiter echo.MiddlewareFunc) {
	api := aiApi{
		svc:      opts.AISvc,
		usrSvc:   opts.UserSvc,
		metrics:  opts.Metrics,
		validate: opts.Validate,
	}

	ag := g.Group("/ai", limiter)
	ag.POST("/chat", api.chat)
	ag.POST("/study-plan", api.studyPlan)
}

func (api *aiApi) chat(ctx echo.Context) error {
	if _, err := getContextUser(ctx, api.usrSvc); err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data ai.ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	reply, err := api.svc.Chat(ctx.Request().Context(), data)
	api.metrics.RecordAI("chat", err)
	if err != nil {
		return errors.Wrap(err, "chatting with assistant")
	}
	return ctx.JSON(http.StatusOK, reply)
}

func (api *aiApi) studyPlan(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data ai.PlanInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PlanInput")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.StudyPlan(ctx.Request().Context(), usr.ID, data)
	api.metrics.RecordAI("study_plan", err)
	if err != nil {
		return errors.Wrap(err, "planning study")
	}
	return ctx.JSON(http.StatusOK, plan)
}
