package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/access"
	"github.com/trezcool/studypal/core/user"
)

type userApi struct {
	conf     *core.Config
	logger   core.Logger
	svc      *user.Service
	policy   *access.Policy
	validate *validator.Validate
}

func newUserApi(opts *Options) *userApi {
	return &userApi{
		conf:     opts.Conf,
		logger:   opts.Logger,
		svc:      opts.UserSvc,
		policy:   opts.Policy,
		validate: opts.Validate,
	}
}

func registerAuthAPI(g *echo.Group, opts *Options, resetLimiter echo.MiddlewareFunc) {
	api := newUserApi(opts)

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)
	ag.POST("/logout", api.logout)
	ag.POST("/password-reset", api.resetPassword, resetLimiter)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)

	// authed endpoints
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/session", api.session)
}

func registerUserAPI(g *echo.Group, opts *Options, adminOnly echo.MiddlewareFunc) {
	api := newUserApi(opts)

	ug := g.Group("/users")
	ug.GET("", api.query, adminOnly)
	ug.GET("/me", api.retrieveMe)
	ug.PUT("/me", api.updateMe)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), api.conf, data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	return api.sendToken(ctx, claims)
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) logout(ctx echo.Context) error {
	clearSessionCookie(ctx, api.conf)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || core.IsNotFound(err)) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", err, requestFields(ctx))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	claims, err := refreshClaims(ctx, api.conf, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return api.sendToken(ctx, claims)
}

func (api *userApi) session(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{
		User:      usr,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		IsAdmin:   api.policy.IsAdmin(usr.Email, usr.IsAdmin),
		IsFounder: api.policy.IsFounder(usr.Email),
	})
}

// sendToken signs `claims` and hands the token out both in the body and as the session cookie.
func (api *userApi) sendToken(ctx echo.Context, claims *Claims) error {
	token, err := GenerateToken(api.conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	expiresAt := claims.ExpiresAt.Time.UTC()
	setSessionCookie(ctx, api.conf, token, expiresAt)
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	err := echo.QueryParamsBinder(ctx).
		String("search", &filter.Search).
		CustomFunc("is_active", boolParam("is_active", &filter.IsActive)).
		CustomFunc("created_from", timeParam("created_from", &filter.CreatedFrom)).
		CustomFunc("created_to", timeParam("created_to", &filter.CreatedTo, true /* upTo */)).
		BindError()
	if err != nil {
		return queryParamError(err)
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieveMe(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateMe(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err = data.Validate(usr, api.validate); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	SessionResponse struct {
		User      user.User `json:"user"`
		ExpiresAt time.Time `json:"expires_at"`
		IsAdmin   bool      `json:"is_admin"`
		IsFounder bool      `json:"is_founder"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
