package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mwalimuhq/ngao/apps/api/echo"
	"github.com/mwalimuhq/ngao/core"
	authsvc "github.com/mwalimuhq/ngao/services/auth"
)

func Test_guardApi_home(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Ngao API!", rec.Body.String())
}

func Test_guardApi_login(t *testing.T) {
	path := "/v1/auth/login"
	creds := func(uname, pwd string) []byte {
		return []byte(fmt.Sprintf(`{"username":%q,"password":%q}`, uname, pwd))
	}

	// each case gets its own screen size so the attempt budgets never overlap
	tests := []httpTest{
		{
			name: "Fields required", screen: "lg-1", wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"this field is required","password":"this field is required"}`),
		},
		{
			name: "Unknown user", screen: "lg-2", body: creds("nobody", "whatever"),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", screen: "lg-3", body: creds("hero", "not-it"),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", screen: "lg-4", body: creds("ndog", "S3kr3t!Dog"),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Success", screen: "lg-5", body: creds("hero", "S3kr3t!Stu"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, path, tt.body)
			req.Header.Set("X-Screen-Size", tt.screen)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			var resp LoginResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Token)
			assert.NotEmpty(t, resp.CSRFToken)
			assert.Greater(t, resp.ExpiresAt, int64(0))
		})
	}
}

func Test_guardApi_loginRateLimited(t *testing.T) {
	path := "/v1/auth/login"
	body := []byte(`{"username":"hero","password":"not-it"}`)
	attempt := func() *http.Response {
		req, rec := newRequest(http.MethodPost, path, body)
		req.Header.Set("X-Screen-Size", "rl-login")
		app.ServeHTTP(rec, req)
		return rec.Result()
	}

	for i := 0; i < 5; i++ {
		res := attempt()
		require.Equal(t, http.StatusBadRequest, res.StatusCode, "attempt %d should reach the handler", i+1)
	}

	res := attempt()
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Equal(t, "30", res.Header.Get("Retry-After"))

	// blocked again, but only the first excess is recorded
	res = attempt()
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)

	var hits int
	for _, ev := range eventsOfType(core.EventRateLimitExceeded) {
		if strings.Contains(ev.Details, `"login"`) {
			hits++
		}
	}
	assert.Equal(t, 1, hits)
}

func Test_guardApi_csrfFlow(t *testing.T) {
	p := addAccount("csrfflow", "csrfflow@test.cd", "S3kr3t!Flo", []string{authsvc.RoleStudent})
	_, token := openSession(t, p, conf.Guard.SessionTTL)
	feedback := []byte(`{"topic":"Lesson quality","comment":"The fractions lesson was great"}`)

	submit := func(csrfToken string) *httptest.ResponseRecorder {
		req, rec := newAuthRequest(http.MethodPost, "/v1/feedback", token, feedback)
		if csrfToken != "" {
			req.Header.Set("X-CSRF-Token", csrfToken)
		}
		app.ServeHTTP(rec, req)
		return rec
	}
	rejected := marshallObj(t, httpErr{Error: "form verification failed, please refresh and try again"})

	// no token issued yet
	rec := submit("")
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: rejected}, rec)
	rec = submit("bogus-token")
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: rejected}, rec)

	// issue a form token
	req, rec := newAuthRequest(http.MethodPost, "/v1/csrf", token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var issued CSRFTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	require.NotEmpty(t, issued.CSRFToken)

	// a successful submission consumes the token and hands back a fresh one
	rec = submit(issued.CSRFToken)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "feedback received", resp.Detail)
	assert.NotEmpty(t, resp.CSRFToken)
	assert.NotEqual(t, issued.CSRFToken, resp.CSRFToken)

	// the consumed token is spent
	rec = submit(issued.CSRFToken)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: rejected}, rec)

	// the rotated one works
	rec = submit(resp.CSRFToken)
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	// a token bound to another session is rejected for this one
	other, err := csrfMgr.Generate("some-other-session")
	require.NoError(t, err)
	rec = submit(other)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: rejected}, rec)

	assert.NotEmpty(t, eventsOfType(core.EventCSRFViolation))
}

func Test_guardApi_inputScreening(t *testing.T) {
	p := addAccount("screening", "screening@test.cd", "S3kr3t!Scr", []string{authsvc.RoleStudent})
	_, token := openSession(t, p, conf.Guard.SessionTTL)

	csrfToken := func(t *testing.T) string {
		req, rec := newAuthRequest(http.MethodPost, "/v1/csrf", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp CSRFTokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp.CSRFToken
	}

	t.Run("Dangerous comment rejected", func(t *testing.T) {
		form := csrfToken(t)
		body := []byte(`{"topic":"Math homework","comment":"<script>alert('x')</script>"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/feedback", token, body)
		req.Header.Set("X-CSRF-Token", form)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"comment":"comment contains potentially dangerous content"}`),
		}, rec)
		assert.NotEmpty(t, eventsOfType(core.EventSuspiciousInput))

		// a rejected payload does not consume the form token
		body = []byte(`{"topic":"Math homework","comment":"never mind, all good"}`)
		req, rec = newAuthRequest(http.MethodPost, "/v1/feedback", token, body)
		req.Header.Set("X-CSRF-Token", form)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	})

	t.Run("Symbols in topic rejected", func(t *testing.T) {
		body := []byte(`{"topic":"So cool!!!","comment":"fine"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/feedback", token, body)
		req.Header.Set("X-CSRF-Token", csrfToken(t))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"topic":"only alphanumeric characters and underscores are allowed"}`),
		}, rec)
	})

	t.Run("Oversized chat message rejected", func(t *testing.T) {
		msg := strings.Repeat("a", 501)
		body := []byte(fmt.Sprintf(`{"message":%q}`, msg))
		req, rec := newAuthRequest(http.MethodPost, "/v1/chat", token, body)
		req.Header.Set("X-CSRF-Token", csrfToken(t))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"message":"message must not exceed 500 characters"}`),
		}, rec)
	})

	t.Run("Chat accepted", func(t *testing.T) {
		body := []byte(`{"message":"hey, is the quiz still on for tomorrow?"}`)
		req, rec := newAuthRequest(http.MethodPost, "/v1/chat", token, body)
		req.Header.Set("X-CSRF-Token", csrfToken(t))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
		var resp SubmitResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "message sent", resp.Detail)
		assert.NotEmpty(t, resp.CSRFToken)
	})
}

func Test_guardApi_checkInput(t *testing.T) {
	path := "/v1/check-input"

	check := func(t *testing.T, body []byte) CheckInputResponse {
		req, rec := newRequest(http.MethodPost, path, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp CheckInputResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	t.Run("Safe value", func(t *testing.T) {
		resp := check(t, []byte(`{"field":"comment","value":"I liked the lesson"}`))
		assert.True(t, resp.Valid)
		assert.Empty(t, resp.Errors)
		assert.Equal(t, "low", string(resp.Risk))
	})

	t.Run("Script is high risk", func(t *testing.T) {
		resp := check(t, []byte(`{"field":"comment","value":"<script>alert(1)</script>"}`))
		assert.False(t, resp.Valid)
		assert.NotEmpty(t, resp.Errors)
		assert.Equal(t, "high", string(resp.Risk))
	})

	t.Run("Over budget is medium risk", func(t *testing.T) {
		resp := check(t, []byte(`{"field":"name","value":"abcdefghijkl","max_length":10}`))
		assert.False(t, resp.Valid)
		assert.Equal(t, "medium", string(resp.Risk))
	})

	t.Run("Field required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, path, []byte(`{"value":"hi"}`))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"field":"this field is required"}`),
		}, rec)
	})
}

func Test_guardApi_events(t *testing.T) {
	path := "/v1/events"
	_, adminToken := openSession(t, admin, conf.Guard.SessionTTL)
	_, studentToken := openSession(t, student, conf.Guard.SessionTTL)

	seeded := core.NewSecurityEvent(core.EventSessionError, "evt-query-user", "session store unreachable", core.SeverityCritical)
	require.NoError(t, evtRepo.CreateEvent(context.Background(), seeded))

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)}, rec)
	})

	t.Run("Admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, studentToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	t.Run("Filter by user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?user_id=evt-query-user", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var events []core.SecurityEvent
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
		require.Len(t, events, 1)
		assert.Equal(t, seeded.ID, events[0].ID)
		assert.Equal(t, core.EventSessionError, events[0].Type)
	})

	t.Run("Bad limit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path+"?limit=lots", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "limit must be an integer"})}, rec)
	})
}
