package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/studypal/apps/api/echo"
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
	aisvc "github.com/trezcool/studypal/services/ai"
	cachesvc "github.com/trezcool/studypal/services/cache"
	emailsvc "github.com/trezcool/studypal/services/email"
	logsvc "github.com/trezcool/studypal/services/logger"
	metricsvc "github.com/trezcool/studypal/services/metrics"
	"github.com/trezcool/studypal/services/scheduler"
	"github.com/trezcool/studypal/storage/database"
	sqlxrepos "github.com/trezcool/studypal/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up cache
	var cache dashboard.Cache = cachesvc.Nop{}
	checker := health.NewChecker(conf.Build, conf.Env).
		Critical("database", func(ctx context.Context) error { return database.StatusCheck(ctx, db) })

	if rdb := cachesvc.NewRedis(conf); rdb != nil {
		defer rdb.Close()
		cache = rdb
		checker.Optional("cache", rdb.Ping)
		if cErr := rdb.Ping(ctx); cErr != nil {
			logger.Warn("redis unavailable, dashboards are computed uncached until it is back", cErr)
		}
	}

	// set up AI assistant
	var assistant ai.Assistant = aisvc.Offline{}
	if conf.GeminiApiKey != "" {
		gemini, gErr := aisvc.NewGemini(ctx, conf)
		if gErr != nil {
			logger.Warn("gemini unavailable, using the offline assistant", gErr)
		} else {
			defer gemini.Close()
			assistant = gemini
		}
	}

	// set up services
	mailSvc := emailsvc.New(conf, logger)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	subjectSvc := subject.NewService(sqlxrepos.NewSubjectRepository(db))
	sessionSvc := studysession.NewService(sqlxrepos.NewSessionRepository(db), logger)
	goalSvc := goal.NewService(sqlxrepos.NewGoalRepository(db))
	achievementSvc := achievement.NewService(sqlxrepos.NewAchievementRepository(db), sessionSvc, goalSvc)
	dashboardSvc := dashboard.NewService(sessionSvc, subjectSvc, goalSvc, achievementSvc, cache, logger)
	sessionSvc.Observe(goalSvc, achievementSvc, dashboardSvc)
	feedbackSvc := feedback.NewService(sqlxrepos.NewFeedbackRepository(db), mailSvc, conf.FounderEmails)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	if conf.Server.DebugAddress != "" {
		go func() {
			if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start Scheduler

	sched := scheduler.New(goalSvc, logger)
	if err = sched.Start(); err != nil {
		logger.Fatal(fmt.Sprintf("starting scheduler: %v", err), err)
	}
	defer sched.Stop()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Policy:         access.NewPolicy(conf.FounderEmails, conf.AdminEmails),
		Health:         checker,
		Metrics:        metricsvc.NewCollector(true),
		UserSvc:        usrSvc,
		SubjectSvc:     subjectSvc,
		SessionSvc:     sessionSvc,
		GoalSvc:        goalSvc,
		AchievementSvc: achievementSvc,
		DashboardSvc:   dashboardSvc,
		FeedbackSvc:    feedbackSvc,
		AISvc:          ai.NewService(assistant, subjectSvc),
		PrivacySvc: privacy.NewService(privacy.Stores{
			Users:        usrSvc,
			Subjects:     subjectSvc,
			Sessions:     sessionSvc,
			Goals:        goalSvc,
			Achievements: achievementSvc,
			Feedback:     feedbackSvc,
		}),
	})

	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
