package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimuhq/ngao/core/session"
)

func (s *server) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(s.opts.Validate); err != nil {
		return err
	}

	claims, sess, err := s.authenticate(ctx, data.Username, data.Password)
	if err != nil {
		return err
	}
	token, err := GenerateToken(s.opts.Conf, claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	// seed the first form token so the client can submit right away
	csrfToken, err := s.opts.CSRF.Generate(sess.ID)
	if err != nil {
		return errors.Wrap(err, "generating CSRF token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		CSRFToken: csrfToken,
		ExpiresAt: sess.ExpiresAt.Unix(),
	})
}

func (s *server) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := s.opts.Sessions.ClearSession(ctx.Request().Context(), claims.SessionID); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Detail: "signed out"})
}

func (s *server) sessionStatus(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	status, err := s.opts.Monitor.Status(ctx.Request().Context(), claims.SessionID)
	if err != nil {
		return errors.Wrap(err, "getting session status")
	}
	return ctx.JSON(http.StatusOK, StatusResponse{SecurityStatus: status})
}

func (s *server) sessionExtend(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	status, err := s.opts.Monitor.Extend(ctx.Request().Context(), claims.SessionID)
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return errSessionGone
		}
		return errors.Wrap(err, "extending session")
	}
	return ctx.JSON(http.StatusOK, StatusResponse{SecurityStatus: status})
}
