package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/requestcontext"
)

const testKey = "test-signing-key"

var (
	userID    = id.NewUserID()
	sessionID = id.NewSessionID()
)

func newService() *JWTService {
	return NewJWTService(testKey, "fithub-test", DefaultTokenTTL)
}

func Test_GenerateAccessToken(t *testing.T) {
	svc := newService()
	issuedAt := time.Now().Truncate(time.Second)
	ctx := requestcontext.WithTime(context.Background(), issuedAt)

	token, jti, err := svc.GenerateAccessToken(ctx, userID, sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, "fithub-test", claims.Issuer)
	assert.True(t, issuedAt.Add(7*24*time.Hour).Equal(claims.ExpiresAt.Time))
}

func Test_GenerateAccessToken_WithoutSession(t *testing.T) {
	svc := newService()
	token, _, err := svc.GenerateAccessToken(context.Background(), userID, id.SessionID{})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Empty(t, claims.SessionID)
}

func Test_GenerateAccessToken_RequiresUser(t *testing.T) {
	_, _, err := newService().GenerateAccessToken(context.Background(), id.UserID{}, sessionID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_ValidateToken_Expired(t *testing.T) {
	svc := newService()
	token, _, err := svc.GenerateAccessToken(context.Background(), userID, sessionID)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.EqualError(t, err, "token expired")
}

func Test_ValidateToken_Rejects(t *testing.T) {
	svc := newService()
	valid, _, err := svc.GenerateAccessToken(context.Background(), userID, sessionID)
	require.NoError(t, err)

	otherKey, _, err := NewJWTService("other-key", "fithub-test", DefaultTokenTTL).
		GenerateAccessToken(context.Background(), userID, sessionID)
	require.NoError(t, err)

	otherIssuer, _, err := NewJWTService(testKey, "someone-else", DefaultTokenTTL).
		GenerateAccessToken(context.Background(), userID, sessionID)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessTokenClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "fithub-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testKey))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		UserID:           userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "fithub-test"},
	}).SignedString([]byte(testKey))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":         "invalid-token-string",
		"empty":           "",
		"wrong key":       otherKey,
		"wrong issuer":    otherIssuer,
		"other algorithm": hs512,
		"missing expiry":  noExpiry,
		"tampered":        valid + "x",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
			assert.EqualError(t, err, "invalid token")
		})
	}
}

func Test_Adapter(t *testing.T) {
	svc := newService()
	token, jti, err := svc.GenerateAccessToken(context.Background(), userID, sessionID)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(svc).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, jti, claims.JTI)
}
