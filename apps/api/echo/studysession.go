package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/dashboard"
	"github.com/trezcool/studypal/core/studysession"
	"github.com/trezcool/studypal/core/subject"
	"github.com/trezcool/studypal/core/user"
	metricsvc "github.com/trezcool/studypal/services/metrics"
)

type sessionApi struct {
	svc        *studysession.Service
	usrSvc     *user.Service
	subjectSvc *subject.Service
	dashboard  *dashboard.Service
	metrics    *metricsvc.Collector
	validate   *validator.Validate
}

func registerStudySessionAPI(g *echo.Group, opts *Options) {
	api := sessionApi{
		svc:        opts.SessionSvc,
		usrSvc:     opts.UserSvc,
		subjectSvc: opts.SubjectSvc,
		dashboard:  opts.DashboardSvc,
		metrics:    opts.Metrics,
		validate:   opts.Validate,
	}

	sg := g.Group("/study-sessions")
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.GET("/export", api.export)
	sg.GET("/:id", api.retrieve)
	sg.PUT("/:id", api.update)
	sg.DELETE("/:id", api.destroy)
}

func (api *sessionApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter, err := bindSessionFilter(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sessions, err := api.svc.Query(ctx.Request().Context(), usr.ID, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying study sessions")
	}
	if sessions == nil {
		sessions = []studysession.StudySession{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	data, err := api.bindData(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating study session")
	}
	api.metrics.RecordSessionCreated()
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, err := api.svc.Get(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting study session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// 404 before validating the payload
	if _, err = api.svc.Get(ctx.Request().Context(), usr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "getting study session")
	}

	data, err := api.bindData(ctx)
	if err != nil {
		return err
	}

	sess, err := api.svc.Update(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating study session")
	}
	api.dashboard.Invalidate(ctx.Request().Context(), usr.ID)
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), usr.ID, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting study session")
	}
	api.dashboard.Invalidate(ctx.Request().Context(), usr.ID)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) export(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	format := strings.ToLower(strings.TrimSpace(ctx.QueryParam("format")))
	switch format {
	case "":
		format = studysession.FormatCSV
	case studysession.FormatCSV, studysession.FormatXLSX:
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "format", Error: "format must be one of [csv xlsx]"})
	}

	filter, err := bindSessionFilter(ctx)
	if err != nil {
		return err
	}
	sessions, err := api.svc.Query(ctx.Request().Context(), usr.ID, filter, nil)
	if err != nil {
		return errors.Wrap(err, "querying study sessions")
	}
	names, err := api.subjectNames(ctx.Request().Context(), sessions)
	if err != nil {
		return err
	}

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, studysession.ContentType(format))
	resp.Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", studysession.ExportFilename(format, time.Now())),
	)
	resp.WriteHeader(http.StatusOK)

	if format == studysession.FormatXLSX {
		err = studysession.WriteXLSX(resp, sessions, names)
	} else {
		err = studysession.WriteCSV(resp, sessions, names)
	}
	return errors.Wrap(err, "writing export")
}

func (api *sessionApi) subjectNames(ctx context.Context, sessions []studysession.StudySession) (map[string]string, error) {
	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		if sess.SubjectID != "" && !core.StringInSlice(sess.SubjectID, ids) {
			ids = append(ids, sess.SubjectID)
		}
	}
	names, err := api.subjectSvc.Names(ctx, ids...)
	return names, errors.Wrap(err, "naming subjects")
}

// bindData binds and validates a SessionData. The subject, when given, must exist.
func (api *sessionApi) bindData(ctx echo.Context) (studysession.SessionData, error) {
	var data studysession.SessionData
	if err := ctx.Bind(&data); err != nil {
		return data, errors.Wrap(err, "binding to SessionData")
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

func bindSessionFilter(ctx echo.Context) (studysession.QueryFilter, error) {
	var filter studysession.QueryFilter
	err := echo.QueryParamsBinder(ctx).
		String("subject_id", &filter.SubjectID).
		CustomFunc("from", timeParam("from", &filter.From)).
		CustomFunc("to", timeParam("to", &filter.To, true /* upTo */)).
		BindError()
	if err != nil {
		return filter, queryParamError(err)
	}
	return filter, nil
}
