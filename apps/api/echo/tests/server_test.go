package tests

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studypal/core/health"
)

func Test_home(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to StudyPal API!", rec.Body.String())
}

func Test_healthApi(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app := setup(t)

		rec := app.do(http.MethodGet, "/api/health", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var report health.Report
		unmarshal(t, rec, &report)
		assert.Equal(t, health.StatusHealthy, report.Status)
		assert.Equal(t, map[string]string{"database": "ok"}, report.Checks)
		assert.Equal(t, app.conf.Env, report.Environment)
		assert.Greater(t, report.Uptime, 0.0)
	})

	t.Run("database down", func(t *testing.T) {
		app := setup(t, withDBCheck(func(context.Context) error { return errors.New("db down") }))

		rec := app.do(http.MethodGet, "/api/health", "")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())

		var report health.Report
		unmarshal(t, rec, &report)
		assert.Equal(t, health.StatusUnhealthy, report.Status)
		assert.Equal(t, map[string]string{"database": "error"}, report.Checks)
		assert.NotContains(t, rec.Body.String(), "db down")
		assert.Equal(t, []string{"health check failed: database"}, app.logger.Messages("warn"))
	})
}

func Test_gate(t *testing.T) {
	app := setup(t)

	hero := app.createUser(t, "Hero", "hero", "hero@test.cd")
	token := app.getToken(t, hero)

	t.Run("pages redirect to sign in", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/dashboard", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/signin?callbackUrl=%2Fdashboard", rec.Header().Get("Location"))

		rec = app.do(http.MethodGet, "/goals/abc", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/auth/signin?callbackUrl=%2Fgoals%2Fabc", rec.Header().Get("Location"))
	})

	t.Run("signed in page requests go through", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/dashboard", token)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("public pages", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/auth/signin", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("api calls get 401", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/goals", "")
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

		rec = app.do(http.MethodGet, "/api/goals", "garbage")
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired token"}),
		}, rec)
	})

	t.Run("bad token on public paths is ignored", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/health", "garbage")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("session cookie", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/goals", "")
		req.AddCookie(&http.Cookie{Name: "session_token", Value: token})
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_securityHeaders(t *testing.T) {
	app := setup(t)

	rec := app.do(http.MethodGet, "/", "")
	h := rec.Header()
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Equal(t, "camera=(), microphone=(), geolocation=()", h.Get("Permissions-Policy"))
	assert.NotEmpty(t, h.Get("X-Request-ID"))
	assert.Empty(t, h.Get("Strict-Transport-Security"))
}

func Test_suspiciousRequests(t *testing.T) {
	app := setup(t)

	app.do(http.MethodGet, "/?q=hello", "")
	assert.Empty(t, app.logger.Messages("warn"))

	app.do(http.MethodGet, "/?q=%3Cscript%3Ealert(1)%3C/script%3E", "")
	assert.Equal(t, []string{"suspicious request"}, app.logger.Messages("warn"))

	req, rec := newAuthRequest(http.MethodGet, "/api/health", "")
	req.Header.Set("User-Agent", "sqlmap/1.7")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, app.logger.Messages("warn"), 2)
}

func Test_metrics(t *testing.T) {
	app := setup(t)

	app.do(http.MethodGet, "/", "")
	app.do(http.MethodGet, "/api/goals", "")

	rec := app.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `studypal_http_requests_total{method="GET",route="/",status="200"} 1`)
	assert.Contains(t, body, `studypal_http_requests_total{method="GET",route="/api/goals",status="401"} 1`)
	assert.Contains(t, body, "studypal_http_request_duration_seconds_bucket")
}
