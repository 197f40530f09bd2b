package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/mwalimuhq/ngao/core"
	"github.com/mwalimuhq/ngao/core/session"
	authsvc "github.com/mwalimuhq/ngao/services/auth"
)

const jwtContextKey = "userToken"

// Claims represents the authorization claims transmitted via a JWT.
// SessionID binds every token to exactly one stored session record.
type Claims struct {
	jwt.StandardClaims
	SessionID string   `json:"sid,omitempty"`
	Username  string   `json:"username,omitempty"`
	IsStudent bool     `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsTeacher bool     `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin   bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	Roles     []string `json:"roles,omitempty"`
}

func (s *server) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(s.opts.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// GetClaims builds the claims for an authenticated principal and its session.
func GetClaims(conf *core.Config, p authsvc.Principal, sess *session.Session) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   p.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		SessionID: sess.ID,
		Username:  p.Username,
		IsStudent: p.IsStudent(),
		IsTeacher: p.IsTeacher(),
		IsAdmin:   p.IsAdmin(),
		Roles:     p.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

// authenticate verifies credentials and opens a fresh session record.
func (s *server) authenticate(ctx echo.Context, uname, pwd string) (*Claims, *session.Session, error) {
	p, err := s.opts.Auth.Authenticate(uname, pwd)
	if err != nil {
		switch errors.Cause(err) {
		case authsvc.ErrAuthenticationFailed:
			return nil, nil, errAuthenticationFailed
		case authsvc.ErrAccountDeactivated:
			return nil, nil, errAccountDeactivated
		}
		return nil, nil, errors.Wrap(err, "authenticating")
	}

	now := time.Now().UTC()
	sess := &session.Session{
		ID:        uuid.New().String(),
		UserID:    p.ID,
		Roles:     p.Roles,
		CreatedAt: now,
		ExpiresAt: now.Add(s.opts.Conf.Guard.SessionTTL),
	}
	if err := s.opts.Sessions.SaveSession(ctx.Request().Context(), sess); err != nil {
		return nil, nil, errors.Wrap(err, "saving session")
	}
	return GetClaims(s.opts.Conf, p, sess), sess, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}
