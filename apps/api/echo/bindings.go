package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/mwalimuhq/ngao/core"
	"github.com/mwalimuhq/ngao/core/session"
	"github.com/mwalimuhq/ngao/core/textrisk"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token     string `json:"token"`
		CSRFToken string `json:"csrf_token"`
		ExpiresAt int64  `json:"expires_at"`
	}

	CSRFTokenResponse struct {
		CSRFToken string `json:"csrf_token"`
	}

	FeedbackRequest struct {
		Topic   string `json:"topic" validate:"required,max=100,alphanum_"`
		Comment string `json:"comment" validate:"required"`
	}

	ChatRequest struct {
		Message string `json:"message" validate:"required"`
	}

	// SubmitResponse acknowledges a guarded submission; CSRFToken is the
	// rotated token for the next one.
	SubmitResponse struct {
		Detail    string `json:"detail"`
		CSRFToken string `json:"csrf_token,omitempty"`
	}

	CheckInputRequest struct {
		Value               string `json:"value"`
		Field               string `json:"field" validate:"required,max=100"`
		MaxLength           int    `json:"max_length"`
		AllowHTML           bool   `json:"allow_html"`
		RequireAlphanumeric bool   `json:"require_alphanumeric"`
	}

	CheckInputResponse struct {
		textrisk.Assessment
		TypingTooFast bool `json:"typing_too_fast,omitempty"`
	}

	StatusResponse struct {
		session.SecurityStatus
	}

	SuccessResponse struct {
		Detail string `json:"detail"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return validate.Struct(r)
}

func (r *FeedbackRequest) Validate(validate *validator.Validate) error {
	r.Topic = core.CleanString(r.Topic)
	return validate.Struct(r)
}

func (r *ChatRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *CheckInputRequest) Validate(validate *validator.Validate) error {
	r.Field = core.CleanString(r.Field)
	return validate.Struct(r)
}

// EventQuery binds security event query params.
type EventQuery struct {
	Type     string
	Severity string
	UserID   string
	Limit    int
}

func (q EventQuery) Filter() core.EventFilter {
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return core.EventFilter{
		Type:     q.Type,
		Severity: q.Severity,
		UserID:   q.UserID,
		Limit:    limit,
	}
}
