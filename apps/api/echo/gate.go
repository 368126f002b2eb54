package echoapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/studypal/core"
)

// Bucket tells the gate how to treat a request path.
type Bucket int

const (
	// Skip paths bypass the gate entirely.
	Skip Bucket = iota
	// Public paths are reachable without a session; a valid token is still picked up.
	Public
	// Protected paths require a valid session.
	Protected
)

func (b Bucket) String() string {
	switch b {
	case Skip:
		return "skip"
	case Public:
		return "public"
	default:
		return "protected"
	}
}

const signInPath = "/auth/signin"

var (
	skipPaths      = []string{"/metrics", "/favicon.ico", "/robots.txt"}
	skipPrefixes   = []string{"/static/", "/assets/"}
	publicPaths    = []string{"/", "/api/health", "/api/auth/login", "/api/auth/register", "/api/auth/logout"}
	publicPrefixes = []string{"/api/auth/password-reset", "/auth/"}
)

// Classify puts `path` in its gate Bucket.
func Classify(path string) Bucket {
	if path == "" {
		path = "/"
	}
	if core.StringInSlice(path, skipPaths) || hasAnyPrefix(path, skipPrefixes) {
		return Skip
	}
	if core.StringInSlice(path, publicPaths) || hasAnyPrefix(path, publicPrefixes) {
		return Public
	}
	return Protected
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// gateMiddleware authenticates requests from their session token.
// Unauthenticated API calls get a 401; page requests are redirected to the sign-in page.
func (s *server) gateMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			path := ctx.Request().URL.Path
			bucket := Classify(path)
			if bucket == Skip {
				return next(ctx)
			}

			token := requestToken(ctx)
			if token != "" {
				if claims, err := ParseToken(s.opts.Conf, token); err == nil {
					ctx.Set(contextClaimsKey, claims)
					return next(ctx)
				} else if bucket == Protected && isAPIPath(path) {
					return errInvalidToken
				}
			}

			switch {
			case bucket == Public:
				return next(ctx)
			case isAPIPath(path):
				return errUnauthorized
			default:
				return ctx.Redirect(http.StatusFound, signInPath+"?callbackUrl="+url.QueryEscape(path))
			}
		}
	}
}
