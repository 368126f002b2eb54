package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/tests"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Bucket
	}{
		{"", Public},
		{"/", Public},
		{"/metrics", Skip},
		{"/favicon.ico", Skip},
		{"/static/app.js", Skip},
		{"/assets/logo.svg", Skip},
		{"/api/health", Public},
		{"/api/auth/login", Public},
		{"/api/auth/register", Public},
		{"/api/auth/password-reset", Public},
		{"/api/auth/password-reset-confirm", Public},
		{"/auth/signin", Public},
		{"/api/auth/session", Protected},
		{"/api/auth/token-refresh", Protected},
		{"/api/users/me", Protected},
		{"/dashboard", Protected},
		{"/metricsx", Protected},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path), "got %s", Classify(tt.path))
		})
	}
}

func Test_suspiciousPattern(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		userAgent string
		want      string
	}{
		{name: "clean", url: "/api/goals?status=active", userAgent: "Mozilla/5.0"},
		{name: "path traversal", url: "/static/../../etc/hosts", want: "../"},
		{name: "escaped script", url: "/?q=%3CSCRIPT%3Ealert(1)", want: "<script"},
		{name: "sql injection", url: "/api/users?q=1%20UNION%20SELECT%20*", want: "union select"},
		{name: "scanner user agent", url: "/", userAgent: "Nikto/2.1.6", want: "nikto"},
		{name: "javascript url", url: "/?next=javascript:alert(1)", want: "javascript:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, suspiciousPattern(tt.url, tt.userAgent))
		})
	}
}

func Test_rateLimiter(t *testing.T) {
	now := time.Now()

	t.Run("burst then wait", func(t *testing.T) {
		rl := newRateLimiter(rate.Every(time.Minute), 2, time.Hour)

		for i := 0; i < 2; i++ {
			ok, _ := rl.allow("ip:1", now)
			require.True(t, ok, "request %d", i+1)
		}
		ok, wait := rl.allow("ip:1", now)
		assert.False(t, ok)
		assert.InDelta(t, time.Minute.Seconds(), wait.Seconds(), 1)

		// other keys have their own bucket
		ok, _ = rl.allow("ip:2", now)
		assert.True(t, ok)

		// refilled
		ok, _ = rl.allow("ip:1", now.Add(time.Minute))
		assert.True(t, ok)
	})

	t.Run("idle visitors are pruned", func(t *testing.T) {
		rl := newRateLimiter(rate.Every(time.Minute), 1, 10*time.Minute)
		rl.allow("a", now)
		rl.allow("b", now.Add(5*time.Minute))
		assert.Equal(t, 2, rl.size())

		rl.allow("c", now.Add(12*time.Minute))
		assert.Equal(t, 2, rl.size()) // a is gone

		rl.allow("c", now.Add(30*time.Minute))
		assert.Equal(t, 1, rl.size())
	})

	t.Run("middleware", func(t *testing.T) {
		e := echo.New()
		handler := rateLimitByIP(newRateLimiter(rate.Every(time.Hour), 1, time.Hour))(func(ctx echo.Context) error {
			return ctx.NoContent(http.StatusNoContent)
		})

		serve := func() (echo.Context, error) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/password-reset", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			ctx := e.NewContext(req, httptest.NewRecorder())
			return ctx, handler(ctx)
		}

		_, err := serve()
		require.NoError(t, err)

		ctx, err := serve()
		assert.Equal(t, errTooManyRequests, err)
		assert.Equal(t, "3600", ctx.Response().Header().Get(echo.HeaderRetryAfter))
	})
}

func Test_ipExtractor(t *testing.T) {
	tests := []struct {
		name       string
		proxies    []string
		remoteAddr string
		xff        string
		want       string
	}{
		{name: "no proxies ignores forwarding", remoteAddr: "203.0.113.7:4321", xff: "10.0.0.1", want: "203.0.113.7"},
		{name: "no proxies, private peer", remoteAddr: "10.0.0.9:4321", xff: "198.51.100.1", want: "10.0.0.9"},
		{name: "trusted proxy", proxies: []string{"10.1.2.3"}, remoteAddr: "10.1.2.3:80", xff: "198.51.100.1", want: "198.51.100.1"},
		{name: "trusted range", proxies: []string{"10.1.0.0/16"}, remoteAddr: "10.1.9.9:80", xff: "198.51.100.1", want: "198.51.100.1"},
		{name: "untrusted peer", proxies: []string{"10.1.2.3"}, remoteAddr: "10.0.0.9:80", xff: "198.51.100.1", want: "10.0.0.9"},
		{name: "invalid proxy skipped", proxies: []string{"lol", "10.1.2.3"}, remoteAddr: "10.1.2.3:80", xff: "198.51.100.1", want: "198.51.100.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewLogger()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set(echo.HeaderXForwardedFor, tt.xff)
			req.Header.Set(echo.HeaderXRealIP, tt.xff)

			assert.Equal(t, tt.want, ipExtractor(tt.proxies, logger)(req))
		})
	}
}

func Test_bindTime(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		upTo    bool
		want    time.Time
		wantErr bool
	}{
		{name: "empty"},
		{name: "blank", values: []string{""}},
		{name: "date", values: []string{"2024-03-05"}, want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{
			name: "date up to", values: []string{"2024-03-05"}, upTo: true,
			want: time.Date(2024, 3, 5, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name: "rfc3339", values: []string{"2024-03-05T10:00:00+02:00"}, upTo: true,
			want: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC),
		},
		{name: "invalid", values: []string{"05/03/2024"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bindTime(tt.values, tt.upTo)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v; want %v", got, tt.want)
		})
	}
}

func TestOrdering_Bind(t *testing.T) {
	e := echo.New()
	tests := []struct {
		query string
		want  []core.DBOrdering
	}{
		{query: ""},
		{query: "ordering="},
		{query: "ordering=name", want: []core.DBOrdering{{Field: "name", Ascending: true}}},
		{
			query: "ordering=-started_at,%20duration_minutes,-",
			want: []core.DBOrdering{
				{Field: "started_at", Ascending: false},
				{Field: "duration_minutes", Ascending: true},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			ord := new(Ordering)
			ord.Bind(e.NewContext(req, httptest.NewRecorder()))
			assert.Equal(t, tt.want, ord.Orderings)
		})
	}
}
