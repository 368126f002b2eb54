package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/access"
	"github.com/trezcool/studypal/core/achievement"
	"github.com/trezcool/studypal/core/ai"
	"github.com/trezcool/studypal/core/dashboard"
	"github.com/trezcool/studypal/core/feedback"
	"github.com/trezcool/studypal/core/goal"
	"github.com/trezcool/studypal/core/health"
	"github.com/trezcool/studypal/core/privacy"
	"github.com/trezcool/studypal/core/studysession"
	"github.com/trezcool/studypal/core/subject"
	"github.com/trezcool/studypal/core/user"
	metricsvc "github.com/trezcool/studypal/services/metrics"
)

const (
	healthCheckTimeout = 2 * time.Second
	rateLimiterIdle    = 10 * time.Minute

	// password reset requests per IP
	resetRateBurst = 5
	resetRateEvery = 3 * time.Minute
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool
		Validate       *validator.Validate
		Translator     ut.Translator
		Policy         *access.Policy
		Health         *health.Checker
		Metrics        *metricsvc.Collector

		UserSvc        *user.Service
		SubjectSvc     *subject.Service
		SessionSvc     *studysession.Service
		GoalSvc        *goal.Service
		AchievementSvc *achievement.Service
		DashboardSvc   *dashboard.Service
		FeedbackSvc    *feedback.Service
		AISvc          *ai.Service
		PrivacySvc     *privacy.Service
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.IPExtractor = ipExtractor(conf.Server.TrustedProxies, s.opts.Logger)
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	s.app.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	s.app.Use(securityMiddleware(conf, s.opts.Logger))
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Format: `${time_rfc3339} ${id} ${remote_ip} ${method} ${uri} ${status} ${latency_human}` + "\n",
		}))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	// errors are handled here so that the recorded status is the one sent
	s.app.Use(metricsMiddleware(s.opts.Metrics))
	s.app.Use(s.gateMiddleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(s.opts.Metrics.Handler()))

	api := s.app.Group("/api")
	adminOnly := requireAdmin(s.opts.Policy, s.opts.UserSvc)
	founderOnly := requireFounder(s.opts.Policy, s.opts.UserSvc)
	resetLimiter := rateLimitByIP(newRateLimiter(rate.Every(resetRateEvery), resetRateBurst, rateLimiterIdle))
	aiLimiter := rateLimitByUser(newRateLimiter(rate.Limit(conf.Server.AIRateLimit), conf.Server.AIRateBurst, rateLimiterIdle))

	registerHealthAPI(api, s.opts.Health, s.opts.Logger)
	registerAuthAPI(api, s.opts, resetLimiter)
	registerUserAPI(api, s.opts, adminOnly)
	registerSubjectAPI(api, s.opts, adminOnly)
	registerStudySessionAPI(api, s.opts)
	registerGoalAPI(api, s.opts)
	registerAchievementAPI(api, s.opts)
	registerDashboardAPI(api, s.opts)
	registerFeedbackAPI(api, s.opts, adminOnly)
	registerAIAPI(api, s.opts, aiLimiter)
	registerPrivacyAPI(api, s.opts)
	registerAdminAPI(api, s.opts, founderOnly)

	// pre-built single page app
	if conf.Server.StaticDir != "" {
		s.app.Use(middleware.StaticWithConfig(middleware.StaticConfig{
			Root:  conf.Server.StaticDir,
			HTML5: true,
			Skipper: func(ctx echo.Context) bool {
				return isAPIPath(ctx.Request().URL.Path)
			},
		}))
	}
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to StudyPal API!")
}
