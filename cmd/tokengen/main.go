// Package main mints FitHub access tokens for local development and testing.
// Tokens are signed with the dev key unless -key or JWT_SIGNING_KEY says otherwise.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "fithub/internal/jwt_token"
	"fithub/internal/platform/config"
	id "fithub/pkg/domain"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expiresIn"`
	Claims    map[string]string `json:"claims"`
}

func main() {
	userIDFlag := flag.String("user-id", "", "User ID (UUID). Generated if empty.")
	sessionIDFlag := flag.String("session-id", "", "Session ID (UUID). The token is not session-bound if empty.")
	ttl := flag.Duration("ttl", jwttoken.DefaultTokenTTL, "Token time-to-live")
	issuer := flag.String("issuer", "fithub", "Token issuer; must match JWT_ISSUER")
	key := flag.String("key", "", "Signing key (default: JWT_SIGNING_KEY or the dev key)")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	signingKey := *key
	if signingKey == "" {
		signingKey = os.Getenv("JWT_SIGNING_KEY")
	}
	if signingKey == "" {
		signingKey = config.DevSigningKey
	}

	userID := id.NewUserID()
	if *userIDFlag != "" {
		parsed, err := id.ParseUserID(*userIDFlag)
		if err != nil {
			fail("invalid -user-id: %v", err)
		}
		userID = parsed
	}
	var sessionID id.SessionID
	if *sessionIDFlag != "" {
		parsed, err := id.ParseSessionID(*sessionIDFlag)
		if err != nil {
			fail("invalid -session-id: %v", err)
		}
		sessionID = parsed
	}

	svc := jwttoken.NewJWTService(signingKey, *issuer, *ttl)
	token, jti, err := svc.GenerateAccessToken(context.Background(), userID, sessionID)
	if err != nil {
		fail("generate token: %v", err)
	}

	out := tokenOutput{
		Token:     token,
		ExpiresIn: ttl.String(),
		Claims: map[string]string{
			"userId":    userID.String(),
			"sessionId": sessionIDString(sessionID),
			"iss":       *issuer,
			"jti":       jti,
			"exp":       time.Now().Add(*ttl).UTC().Format(time.RFC3339),
		},
	}
	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fail("encode json: %v", err)
		}
		return
	}

	fmt.Println("Access Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Expires In:  %s\n", out.ExpiresIn)
	fmt.Printf("User ID:     %s\n", out.Claims["userId"])
	fmt.Printf("Session ID:  %s\n", out.Claims["sessionId"])
	fmt.Printf("JTI:         %s\n", jti)
	fmt.Println()
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println(`  curl -H "Authorization: Bearer <token>" http://localhost:8080/auth/validate`)
}

func sessionIDString(sessionID id.SessionID) string {
	if sessionID.IsNil() {
		return ""
	}
	return sessionID.String()
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
