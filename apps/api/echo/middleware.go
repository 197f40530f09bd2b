package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimuhq/ngao/core/ratelimit"
)

const (
	csrfHeader    = "X-CSRF-Token"
	csrfFormField = "csrf_token"

	// the browser shell forwards its screen size in this header for
	// fingerprinting unauthenticated callers
	screenHeader = "X-Screen-Size"
)

// clientID identifies the caller for rate limiting: the authenticated user id
// when available, else an opaque fingerprint of request attributes.
func (s *server) clientID(ctx echo.Context) string {
	if claims, err := getContextClaims(ctx); err == nil && claims.Subject != "" {
		return claims.Subject
	}
	req := ctx.Request()
	return ratelimit.Fingerprint(
		req.UserAgent(),
		req.Header.Get("Accept-Language"),
		req.Header.Get(screenHeader),
		ctx.RealIP(),
	)
}

// rateLimitMiddleware rejects callers over the action's budget. It runs before
// any CSRF check so an already-blocked client never reaches token validation.
func (s *server) rateLimitMiddleware(action ratelimit.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			clientID := s.clientID(ctx)
			if !s.opts.Limiter.Allow(action, clientID) {
				delay := ratelimit.ProgressiveDelay(s.opts.Limiter.Attempts(action, clientID))
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())))
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}

const csrfContextKey = "csrfToken"

// csrfMiddleware validates the submission token against the caller's session
// before the handler runs. The validated token is stashed in the context;
// handlers consume it via rotateCSRF once the submission succeeds, so a
// rejected payload leaves the token valid for the retry.
func (s *server) csrfMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			token := ctx.Request().Header.Get(csrfHeader)
			if token == "" {
				token = ctx.FormValue(csrfFormField)
			}
			if !s.opts.CSRF.Validate(token, claims.SessionID) {
				return errCSRFRejected
			}

			ctx.Set(csrfContextKey, token)
			return next(ctx)
		}
	}
}

// rotateCSRF consumes the submission's token and returns the replacement for
// the next submission.
func (s *server) rotateCSRF(ctx echo.Context, claims Claims) string {
	token, _ := ctx.Get(csrfContextKey).(string)
	next, ok := s.opts.CSRF.Rotate(token, claims.SessionID)
	if !ok {
		return ""
	}
	return next
}

// adminMiddleware restricts a route to admin portal users.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
