package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimuhq/ngao/core"
	"github.com/mwalimuhq/ngao/core/ratelimit"
	"github.com/mwalimuhq/ngao/core/textrisk"
)

func registerGuardAPI(g *echo.Group, jwt echo.MiddlewareFunc, s *server) {
	// un-authed endpoints
	g.POST("/auth/login", s.login, s.rateLimitMiddleware(ratelimit.ActionLogin))
	g.POST("/check-input", s.checkInput, s.rateLimitMiddleware(ratelimit.ActionGeneral))

	// authed endpoints
	ag := g.Group("", jwt)
	ag.POST("/auth/logout", s.logout)
	ag.POST("/csrf", s.issueCSRF)
	ag.GET("/session/status", s.sessionStatus)
	ag.POST("/session/extend", s.sessionExtend)

	// guarded submissions: the rate limit check strictly precedes the CSRF
	// check, which strictly precedes payload handling
	ag.POST("/feedback", s.submitFeedback, s.rateLimitMiddleware(ratelimit.ActionFeedback), s.csrfMiddleware())
	ag.POST("/chat", s.submitChat, s.rateLimitMiddleware(ratelimit.ActionChat), s.csrfMiddleware())

	// admin endpoints
	ag.GET("/events", s.queryEvents, adminMiddleware())
}

// Handlers

// issueCSRF hands a form a fresh anti-forgery token on mount. Every form
// instance owns an independent token.
func (s *server) issueCSRF(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	token, err := s.opts.CSRF.Generate(claims.SessionID)
	if err != nil {
		return errors.Wrap(err, "generating CSRF token")
	}
	return ctx.JSON(http.StatusOK, CSRFTokenResponse{CSRFToken: token})
}

func (s *server) checkInput(ctx echo.Context) error {
	var data CheckInputRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckInputRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	assessment := textrisk.Validate(data.Value, data.Field, textrisk.Options{
		MaxLength:           data.MaxLength,
		AllowHTML:           data.AllowHTML,
		RequireAlphanumeric: data.RequireAlphanumeric,
	})

	// each client tracks its own typing cadence
	fieldKey := s.clientID(ctx) + ":" + data.Field
	tooFast := s.opts.Tracker.RecordKeystroke(fieldKey)

	return ctx.JSON(http.StatusOK, CheckInputResponse{
		Assessment:    assessment,
		TypingTooFast: tooFast,
	})
}

func (s *server) submitFeedback(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data FeedbackRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeedbackRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	if err := s.screenInput(claims, "comment", data.Comment, textrisk.Options{MaxLength: 1000}); err != nil {
		return err
	}

	sanitized := textrisk.SanitizeMap(map[string]string{
		"topic":   data.Topic,
		"comment": data.Comment,
	})
	s.opts.Tracker.CheckRepeat(claims.SessionID+":feedback.comment", sanitized["comment"])

	// hand-off point: the sanitized payload goes to the feedback pipeline
	if s.opts.Logger != nil {
		s.opts.Logger.Info(fmt.Sprintf("feedback accepted from %s", claims.Username), sanitized)
	}

	return ctx.JSON(http.StatusAccepted, SubmitResponse{
		Detail:    "feedback received",
		CSRFToken: s.rotateCSRF(ctx, claims),
	})
}

func (s *server) submitChat(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}
	if err := s.screenInput(claims, "message", data.Message, textrisk.Options{MaxLength: 500}); err != nil {
		return err
	}

	sanitized := textrisk.Sanitize(data.Message)
	s.opts.Tracker.CheckRepeat(claims.SessionID+":chat.message", sanitized)

	if s.opts.Logger != nil {
		s.opts.Logger.Info(fmt.Sprintf("chat message accepted from %s", claims.Username))
	}

	return ctx.JSON(http.StatusAccepted, SubmitResponse{
		Detail:    "message sent",
		CSRFToken: s.rotateCSRF(ctx, claims),
	})
}

// screenInput runs the risk validator on a free-text field and rejects
// invalid content. High-risk findings are recorded before rejection.
func (s *server) screenInput(claims Claims, field, value string, opts textrisk.Options) error {
	assessment := textrisk.Validate(value, field, opts)
	if assessment.Risk == textrisk.LevelHigh {
		s.opts.Audit.RecordEvents(core.NewSecurityEvent(
			core.EventSuspiciousInput,
			claims.Subject,
			fmt.Sprintf("high-risk content in field %q", field),
			core.SeverityMedium,
		))
	}
	if !assessment.Valid {
		flds := make([]core.FieldError, 0, len(assessment.Errors))
		for _, e := range assessment.Errors {
			flds = append(flds, core.FieldError{Field: field, Error: e})
		}
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (s *server) queryEvents(ctx echo.Context) error {
	query := EventQuery{
		Type:     ctx.QueryParam("type"),
		Severity: ctx.QueryParam("severity"),
		UserID:   ctx.QueryParam("user_id"),
	}
	if limit := ctx.QueryParam("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return core.NewValidationError(errors.New("limit must be an integer"))
		}
		query.Limit = n
	}

	events, err := s.opts.Events.FilterEvents(ctx.Request().Context(), query.Filter())
	if err != nil {
		return errors.Wrap(err, "querying events")
	}
	return ctx.JSON(http.StatusOK, events)
}
