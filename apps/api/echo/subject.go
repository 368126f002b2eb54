package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core/subject"
	"github.com/trezcool/studypal/core/user"
)

type subjectApi struct {
	svc      *subject.Service
	usrSvc   *user.Service
	validate *validator.Validate
}

func registerSubjectAPI(g *echo.Group, opts *Options, adminOnly echo.MiddlewareFunc) {
	api := subjectApi{
		svc:      opts.SubjectSvc,
		usrSvc:   opts.UserSvc,
		validate: opts.Validate,
	}

	sg := g.Group("/subjects")
	sg.GET("", api.query)
	sg.POST("", api.create, adminOnly)
	sg.DELETE("/:id", api.destroy, adminOnly)

	mg := g.Group("/users/me/subjects")
	mg.GET("", api.queryFollowed)
	mg.POST("", api.follow)
	mg.DELETE("/:subjectId", api.unfollow)
}

func (api *subjectApi) query(ctx echo.Context) error {
	subjects, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []subject.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data subject.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *subjectApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *subjectApi) queryFollowed(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	subjects, err := api.svc.QueryFollowed(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying followed subjects")
	}
	if subjects == nil {
		subjects = []subject.UserSubject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) follow(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data subject.FollowSubject
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FollowSubject")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	us, err := api.svc.Follow(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "following subject")
	}
	return ctx.JSON(http.StatusCreated, us)
}

func (api *subjectApi) unfollow(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Unfollow(ctx.Request().Context(), usr.ID, ctx.Param("subjectId")); err != nil {
		return errors.Wrap(err, "unfollowing subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}
