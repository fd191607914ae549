package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pickupsports/internal/adapters/auth"
	"pickupsports/internal/delivery/http/controllers"
	"pickupsports/internal/delivery/http/helpers"
	"pickupsports/internal/repository/memory"
	"pickupsports/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eventRepo := memory.NewEventRepository()
	userRepo := memory.NewUserRepository()
	jwt := auth.NewJWT("test-secret")
	hasher := auth.NewBcryptHasher(4)

	membership := services.NewMembershipService(eventRepo, userRepo, logger, services.MembershipConfig{Timeout: 5 * time.Second})
	mux := NewRouter(
		controllers.NewEventController(logger, membership),
		controllers.NewAuthController(logger, services.NewAuthService(userRepo, hasher, jwt, time.Hour)),
		controllers.NewUserController(logger, services.NewUserService(userRepo, eventRepo)),
		jwt,
	)
	return &testServer{handler: Wrap(logger, nil, mux)}
}

func (s *testServer) do(t *testing.T, method, path, token, body string, data any) (int, *helpers.APIError) {
	t.Helper()
	req := httptest.NewRequestWithContext(context.Background(), method, "http://test"+path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("x-access-token", token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope), "%s %s", method, path)
	if data != nil && envelope.Data != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, data))
	}
	return rr.Code, envelope.Error
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID string `json:"id"`
	} `json:"user"`
}

func (s *testServer) signUp(t *testing.T, email string) session {
	t.Helper()
	var out session
	status, apiErr := s.do(t, http.MethodPost, "/api/users/signup", "",
		`{"email":"`+email+`","password":"password123","firstName":"A","lastName":"B"}`, &out)
	require.Equal(t, http.StatusCreated, status, "%+v", apiErr)
	return out
}

func TestRouter_MembershipFlow(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "alice@example.com")
	bob := s.signUp(t, "bob@example.com")

	var signIn session
	status, _ := s.do(t, http.MethodPost, "/api/users/signin", "", `{"email":"bob@example.com","password":"password123"}`, &signIn)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, bob.User.ID, signIn.User.ID)

	var event struct {
		ID          string `json:"id"`
		PlayerCount int    `json:"playerCount"`
	}
	body := `{"type":"tennis","location":"Riverside Courts","latitude":40.8,"longitude":-73.97,` +
		`"startTime":"2026-06-01T17:00:00Z","endTime":"2026-06-01T18:30:00Z","skillLevel":"intermediate"}`
	status, _ = s.do(t, http.MethodPost, "/api/events", alice.Token, body, &event)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 1, event.PlayerCount)

	membership := `{"eventId":"` + event.ID + `"}`
	status, _ = s.do(t, http.MethodPost, "/api/events/users/"+bob.User.ID+"/", signIn.Token, membership, &event)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 2, event.PlayerCount)

	status, _ = s.do(t, http.MethodPost, "/api/events/users/"+bob.User.ID, signIn.Token, membership, &event)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, event.PlayerCount)

	status, apiErr := s.do(t, http.MethodPost, "/api/events/users/"+alice.User.ID, signIn.Token, membership, nil)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, helpers.ErrCodeForbidden, apiErr.Code)

	var mine []struct {
		ID string `json:"id"`
	}
	status, _ = s.do(t, http.MethodGet, "/api/users/me/events", bob.Token, "", &mine)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, mine, 1)
	assert.Equal(t, event.ID, mine[0].ID)

	var out struct {
		Deleted bool `json:"deleted"`
	}
	status, _ = s.do(t, http.MethodDelete, "/api/events/users/"+alice.User.ID, alice.Token, membership, &out)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, out.Deleted)
	status, _ = s.do(t, http.MethodDelete, "/api/events/users/"+bob.User.ID, bob.Token, membership, &out)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.Deleted)

	var events []any
	status, _ = s.do(t, http.MethodGet, "/api/events", alice.Token, "", &events)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, events)
}

func TestRouter_Errors(t *testing.T) {
	s := newTestServer(t)
	alice := s.signUp(t, "alice@example.com")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"no token", http.MethodGet, "/api/events", "", "", http.StatusUnauthorized, helpers.ErrCodeUnauthorized},
		{"bad token", http.MethodGet, "/api/events", "garbage", "", http.StatusUnauthorized, helpers.ErrCodeUnauthorized},
		{"unknown event", http.MethodPost, "/api/events/users/" + alice.User.ID, alice.Token, `{"eventId":"nope"}`, http.StatusNotFound, helpers.ErrCodeNotFound},
		{"duplicate sign-up", http.MethodPost, "/api/users/signup", "", `{"email":"alice@example.com","password":"password123"}`, http.StatusConflict, helpers.ErrCodeConflict},
		{"wrong password", http.MethodPost, "/api/users/signin", "", `{"email":"alice@example.com","password":"password999"}`, http.StatusUnauthorized, helpers.ErrCodeUnauthorized},
		{"invalid event", http.MethodPost, "/api/events", alice.Token, `{"type":""}`, http.StatusBadRequest, helpers.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr := s.do(t, tt.method, tt.path, tt.token, tt.body, nil)
			require.Equal(t, tt.wantStatus, status)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	var out map[string]string
	status, _ := s.do(t, http.MethodGet, "/health", "", "", &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", out["status"])
}
