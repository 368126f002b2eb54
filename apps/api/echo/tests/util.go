package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/studypal/apps/api/echo"
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
	metricsvc "github.com/trezcool/studypal/services/metrics"
	inmemdb "github.com/trezcool/studypal/storage/database/inmem"
	"github.com/trezcool/studypal/tests"
)

var (
	errMissingToken = httpErr{Error: "user not authenticated"}
	errForbidden    = httpErr{Error: "permission denied"}
)

type testApp struct {
	Server
	conf    *core.Config
	logger  *testutil.Logger
	metrics *metricsvc.Collector

	usrRepo      user.Repository
	subjectRepo  subject.Repository
	sessionRepo  studysession.Repository
	goalRepo     goal.Repository
	feedbackRepo feedback.Repository
}

type setupOption func(*setupOptions)

type setupOptions struct {
	assistant ai.Assistant
	dbCheck   health.CheckFunc
}

func withAssistant(a ai.Assistant) setupOption {
	return func(o *setupOptions) { o.assistant = a }
}

func withDBCheck(fn health.CheckFunc) setupOption {
	return func(o *setupOptions) { o.dbCheck = fn }
}

func setup(t *testing.T, options ...setupOption) *testApp {
	t.Helper()

	so := setupOptions{assistant: aisvc.Offline{}}
	for _, opt := range options {
		opt(&so)
	}

	conf := core.NewTestConfig()
	logger := testutil.NewLogger()
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ClearSentMessages()

	// set up DB & repos
	db := inmemdb.Open()
	app := &testApp{
		conf:         conf,
		logger:       logger,
		metrics:      metricsvc.NewCollector(false),
		usrRepo:      inmemdb.NewUserRepository(db),
		subjectRepo:  inmemdb.NewSubjectRepository(db),
		sessionRepo:  inmemdb.NewSessionRepository(db),
		goalRepo:     inmemdb.NewGoalRepository(db),
		feedbackRepo: inmemdb.NewFeedbackRepository(db),
	}
	achievementRepo := inmemdb.NewAchievementRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(app.usrRepo, mailSvc, conf)
	subjectSvc := subject.NewService(app.subjectRepo)
	sessionSvc := studysession.NewService(app.sessionRepo, logger)
	goalSvc := goal.NewService(app.goalRepo)
	achievementSvc := achievement.NewService(achievementRepo, sessionSvc, goalSvc)
	dashboardSvc := dashboard.NewService(sessionSvc, subjectSvc, goalSvc, achievementSvc, cachesvc.Nop{}, logger)
	sessionSvc.Observe(goalSvc, achievementSvc, dashboardSvc)
	feedbackSvc := feedback.NewService(app.feedbackRepo, mailSvc, conf.FounderEmails)

	dbCheck := so.dbCheck
	if dbCheck == nil {
		dbCheck = func(context.Context) error { return db.Ping() }
	}

	app.Server = NewServer(&Options{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		Validate:       validate,
		Translator:     translator,
		Policy:         access.NewPolicy(conf.FounderEmails, conf.AdminEmails),
		Health:         health.NewChecker(conf.Build, conf.Env).Critical("database", dbCheck),
		Metrics:        app.metrics,
		UserSvc:        usrSvc,
		SubjectSvc:     subjectSvc,
		SessionSvc:     sessionSvc,
		GoalSvc:        goalSvc,
		AchievementSvc: achievementSvc,
		DashboardSvc:   dashboardSvc,
		FeedbackSvc:    feedbackSvc,
		AISvc:          ai.NewService(so.assistant, subjectSvc),
		PrivacySvc: privacy.NewService(privacy.Stores{
			Users:        usrSvc,
			Subjects:     subjectSvc,
			Sessions:     sessionSvc,
			Goals:        goalSvc,
			Achievements: achievementSvc,
			Feedback:     feedbackSvc,
		}),
	})
	return app
}

// do serves a request and returns its recorder.
func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) createUser(t *testing.T, name, uname, email string) user.User {
	return testutil.CreateUser(t, app.usrRepo, name, uname, email, testutil.Password, true)
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(app.conf, GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// checkUnorderedData compares JSON lists regardless of their order.
func checkUnorderedData(t *testing.T, want []byte, rec *httptest.ResponseRecorder) {
	t.Helper()
	var got, exp []interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
	if err := json.Unmarshal(want, &exp); err != nil {
		t.Fatalf("json.Unmarshal(want) failed: %v", err)
	}
	assert.ElementsMatch(t, exp, got)
}
