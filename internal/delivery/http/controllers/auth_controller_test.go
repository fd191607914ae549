package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pickupsports/internal/delivery/http/helpers"
	"pickupsports/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	token string
	user  *domain.User
	err   error
}

func (f *fakeAuthService) SignUp(ctx context.Context, email, password, firstName, lastName string) (string, *domain.User, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeAuthService) SignIn(ctx context.Context, email, password string) (string, *domain.User, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func TestAuthController_SignUp(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		fakeErr      error
		wantStatus   int
		wantBodyCode string
	}{
		{name: "success", body: `{"email":"alice@example.com","password":"password123","firstName":"Alice","lastName":"Smith"}`, wantStatus: http.StatusCreated},
		{name: "invalid email", body: `{"email":"nope","password":"password123"}`, wantStatus: http.StatusBadRequest, wantBodyCode: helpers.ErrCodeBadRequest},
		{name: "short password", body: `{"email":"alice@example.com","password":"short"}`, wantStatus: http.StatusBadRequest, wantBodyCode: helpers.ErrCodeBadRequest},
		{name: "duplicate email", body: `{"email":"alice@example.com","password":"password123"}`, fakeErr: domain.ErrDuplicateEmail, wantStatus: http.StatusConflict, wantBodyCode: helpers.ErrCodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAuthService{token: "jwt", user: &domain.User{ID: "user-1", Email: "alice@example.com", PasswordHash: "secret"}, err: tt.fakeErr}
			ctrl := NewAuthController(testLogger, fake)
			rr := httptest.NewRecorder()

			ctrl.SignUp(rr, httptest.NewRequest(http.MethodPost, "http://test/api/users/signup", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code)
			var got map[string]any
			envelope := decodeEnvelope(t, rr, &got)
			if tt.wantBodyCode != "" {
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantBodyCode, envelope.Error.Code)
				return
			}
			assert.Equal(t, "jwt", got["token"])
			assert.Equal(t, "Bearer", got["token_type"])
			user, ok := got["user"].(map[string]any)
			require.True(t, ok)
			assert.NotContains(t, user, "passwordHash")
			assert.NotContains(t, user, "PasswordHash")
		})
	}
}

func TestAuthController_SignIn(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		fakeErr      error
		wantStatus   int
		wantBodyCode string
	}{
		{name: "success", body: `{"email":"alice@example.com","password":"password123"}`, wantStatus: http.StatusOK},
		{name: "missing password", body: `{"email":"alice@example.com"}`, wantStatus: http.StatusBadRequest, wantBodyCode: helpers.ErrCodeBadRequest},
		{name: "invalid credentials", body: `{"email":"alice@example.com","password":"wrong-pass"}`, fakeErr: domain.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantBodyCode: helpers.ErrCodeUnauthorized},
		{name: "service error", body: `{"email":"alice@example.com","password":"password123"}`, fakeErr: assert.AnError, wantStatus: http.StatusInternalServerError, wantBodyCode: helpers.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAuthService{token: "jwt", user: &domain.User{ID: "user-1"}, err: tt.fakeErr}
			ctrl := NewAuthController(testLogger, fake)
			rr := httptest.NewRecorder()

			ctrl.SignIn(rr, httptest.NewRequest(http.MethodPost, "http://test/api/users/signin", strings.NewReader(tt.body)))

			require.Equal(t, tt.wantStatus, rr.Code)
			var got AuthResponse
			envelope := decodeEnvelope(t, rr, &got)
			if tt.wantBodyCode != "" {
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantBodyCode, envelope.Error.Code)
				return
			}
			assert.Equal(t, "jwt", got.Token)
			assert.Equal(t, "user-1", got.User.ID)
		})
	}
}
