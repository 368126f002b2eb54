package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/dashboard"
	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/core/subject"
	"github.com/trezcool/studypal/core/user"
)

type goalApi struct {
	svc        *goal.Service
	usrSvc     *user.Service
	subjectSvc *subject.Service
	dashboard  *dashboard.Service
	validate   *validator.Validate
}

func registerGoalAPI(g *echo.Group, opts *Options) {
	api := goalApi{
		svc:        opts.GoalSvc,
		usrSvc:     opts.UserSvc,
		subjectSvc: opts.SubjectSvc,
		dashboard:  opts.DashboardSvc,
		validate:   opts.Validate,
	}

	gg := g.Group("/goals")
	gg.GET("", api.query)
	gg.POST("", api.create)
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update)
	gg.DELETE("/:id", api.destroy)
}

func (api *goalApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	goals, err := api.svc.Query(ctx.Request().Context(), usr.ID, goal.QueryFilter{Status: ctx.QueryParam("status")})
	if err != nil {
		return errors.Wrap(err, "querying goals")
	}
	if goals == nil {
		goals = []goal.Goal{}
	}
	return ctx.JSON(http.StatusOK, goals)
}

func (api *goalApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	data, err := api.bindData(ctx)
	if err != nil {
		return err
	}

	g, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating goal")
	}
	api.dashboard.Invalidate(ctx.Request().Context(), usr.ID)
	return ctx.JSON(http.StatusCreated, g)
}

func (api *goalApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	g, err := api.svc.Get(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting goal")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *goalApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if _, err = api.svc.Get(ctx.Request().Context(), usr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "getting goal")
	}

	data, err := api.bindData(ctx)
	if err != nil {
		return err
	}

	g, err := api.svc.Update(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating goal")
	}
	api.dashboard.Invalidate(ctx.Request().Context(), usr.ID)
	return ctx.JSON(http.StatusOK, g)
}

func (api *goalApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting goal")
	}
	api.dashboard.Invalidate(ctx.Request().Context(), usr.ID)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *goalApi) bindData(ctx echo.Context) (goal.GoalData, error) {
	var data goal.GoalData
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to GoalData")
	}
	if err := data.Validate(api.validate); err != nil {
		return data, err
	}
	if data.SubjectID != "" {
		if _, err := api.subjectSvc.Get(ctx.Request().Context(), data.SubjectID); err != nil {
			if core.IsNotFound(err) {
				return data, core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: "unknown subject"})
			}
			return data, errors.Wrap(err, "getting subject")
		}
	}
	return data, nil
}
