package jwttoken

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/requestcontext"
)

// DefaultTokenTTL is how long an access token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// AccessTokenClaims represents the JWT claims for our access tokens.
// sub repeats userId so generic JWT tooling can identify the user.
type AccessTokenClaims struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation with a shared HS256 secret.
type JWTService struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewJWTService(signingKey, issuer string, tokenTTL time.Duration) *JWTService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
}

// TokenTTL reports the configured token lifetime.
func (s *JWTService) TokenTTL() time.Duration {
	return s.tokenTTL
}

// GenerateAccessToken signs a token for the user and returns it with its jti.
// A nil sessionID omits the session claim.
func (s *JWTService) GenerateAccessToken(ctx context.Context, userID id.UserID, sessionID id.SessionID) (string, string, error) {
	if userID.IsNil() {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "user ID is required")
	}

	jti := uuid.NewString()
	now := requestcontext.Now(ctx)

	claims := AccessTokenClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	}
	if !sessionID.IsNil() {
		claims.SessionID = sessionID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, jti, nil
}

// ValidateToken verifies signature, algorithm, issuer and expiry.
func (s *JWTService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims := new(AccessTokenClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}
