package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pickupsports/internal/domain"
)

func TestJWT_Issue(t *testing.T) {
	secret := "test-secret"
	j := NewJWT(secret)

	token, err := j.Issue("user-123", "u@example.com", 24*time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	claims, ok := parsed.Claims.(*jwtClaims)
	require.True(t, ok)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, tokenIssuerName, claims.Issuer)
}

func TestJWT_Verify(t *testing.T) {
	j := NewJWT("test-secret")
	valid, err := j.Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)

	expired, err := j.Issue("user-123", "u@example.com", -time.Minute)
	require.NoError(t, err)

	otherSecret, err := NewJWT("other-secret").Issue("user-123", "u@example.com", time.Hour)
	require.NoError(t, err)

	noSubject, err := j.Issue("", "u@example.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantID  string
		wantErr bool
	}{
		{name: "valid token", token: valid, wantID: "user-123"},
		{name: "expired token", token: expired, wantErr: true},
		{name: "signed with another secret", token: otherSecret, wantErr: true},
		{name: "missing subject", token: noSubject, wantErr: true},
		{name: "garbage", token: "not-a-jwt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := j.Verify(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestJWT_Verify_rejects_none_algorithm(t *testing.T) {
	j := NewJWT("test-secret")
	claims := jwtClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    tokenIssuerName,
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = j.Verify(unsigned)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
