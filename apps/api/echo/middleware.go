package echoapi

import (
	"math"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/trezcool/studypal/core"
	"github.com/trezcool/studypal/core/access"
	"github.com/trezcool/studypal/core/user"
	metricsvc "github.com/trezcool/studypal/services/metrics"
)

var suspiciousPatterns = []string{
	"../",
	"<script",
	"union select",
	"/etc/passwd",
	"sqlmap",
	"nikto",
	"javascript:",
	"eval(",
}

// suspiciousPattern returns the first suspicious pattern found in the URL or the User-Agent of a request.
func suspiciousPattern(rawURL, userAgent string) string {
	target := strings.ToLower(rawURL)
	if unescaped, err := url.QueryUnescape(target); err == nil {
		target = unescaped
	}
	target += "\n" + strings.ToLower(userAgent)
	for _, p := range suspiciousPatterns {
		if strings.Contains(target, p) {
			return p
		}
	}
	return ""
}

// securityMiddleware completes the headers set by middleware.Secure and logs suspicious requests.
func securityMiddleware(conf *core.Config, logger core.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			h := ctx.Response().Header()
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if conf.Server.CookieSecure {
				h.Set(echo.HeaderStrictTransportSecurity, "max-age=31536000; includeSubDomains")
			}

			req := ctx.Request()
			if p := suspiciousPattern(req.URL.RequestURI(), req.UserAgent()); p != "" {
				fields := requestFields(ctx)
				fields["pattern"] = p
				fields["ip"] = ctx.RealIP()
				fields["user_agent"] = req.UserAgent()
				logger.Warn("suspicious request", fields)
			}
			return next(ctx)
		}
	}
}

func metricsMiddleware(collector *metricsvc.Collector) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			collector.RecordRequest(ctx.Request().Method, route, ctx.Response().Status, time.Since(start))
			return nil
		}
	}
}

func requireAdmin(policy *access.Policy, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if !policy.IsAdmin(usr.Email, usr.IsAdmin) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func requireFounder(policy *access.Policy, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if !policy.IsFounder(usr.Email) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

type (
	visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	// rateLimiter is a set of token buckets, one per key (user or IP).
	rateLimiter struct {
		mu        sync.Mutex
		visitors  map[string]*visitor
		limit     rate.Limit
		burst     int
		idle      time.Duration
		lastPrune time.Time
	}
)

func newRateLimiter(limit rate.Limit, burst int, idle time.Duration) *rateLimiter {
	return &rateLimiter{
		visitors:  make(map[string]*visitor),
		limit:     limit,
		burst:     burst,
		idle:      idle,
		lastPrune: time.Now(),
	}
}

// allow takes a token from the bucket of `key`. When empty, it returns how long to wait for the next token.
func (rl *rateLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastPrune) > rl.idle {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.idle {
				delete(rl.visitors, k)
			}
		}
		rl.lastPrune = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, rl.idle
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// rateLimitByUser limits authenticated requests per User, falling back to the client IP.
func rateLimitByUser(rl *rateLimiter) echo.MiddlewareFunc {
	return rateLimit(rl, func(ctx echo.Context) string {
		if claims, err := getContextClaims(ctx); err == nil {
			return "user:" + claims.Subject
		}
		return "ip:" + ctx.RealIP()
	})
}

// ipExtractor reads the client IP from X-Forwarded-For only when the request comes through one of `proxies`.
// Without proxies the remote address is used and forwarding headers are ignored.
func ipExtractor(proxies []string, logger core.Logger) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}

	opts := []echo.TrustOption{echo.TrustLoopback(false), echo.TrustLinkLocal(false), echo.TrustPrivateNet(false)}
	for _, proxy := range proxies {
		if !strings.Contains(proxy, "/") {
			if strings.Contains(proxy, ":") {
				proxy += "/128"
			} else {
				proxy += "/32"
			}
		}
		_, ipNet, err := net.ParseCIDR(proxy)
		if err != nil {
			logger.Warn("ignoring invalid trusted proxy", err)
			continue
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func rateLimitByIP(rl *rateLimiter) echo.MiddlewareFunc {
	return rateLimit(rl, func(ctx echo.Context) string { return "ip:" + ctx.RealIP() })
}

func rateLimit(rl *rateLimiter, key func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ok, wait := rl.allow(key(ctx), time.Now())
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				if secs < 1 {
					secs = 1
				}
				ctx.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(secs))
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
