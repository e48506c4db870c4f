package service_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	jwttoken "fithub/internal/jwt_token"
	id "fithub/pkg/domain"
)

func mustIDs(t *testing.T, claims *jwttoken.AccessTokenClaims) (id.UserID, id.SessionID) {
	t.Helper()
	userID, err := id.ParseUserID(claims.UserID)
	require.NoError(t, err)
	sessionID, err := id.ParseSessionID(claims.SessionID)
	require.NoError(t, err)
	return userID, sessionID
}
