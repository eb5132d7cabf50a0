package auth

import (
	"testing"
	"time"

	"github.com/TallerDrive/TallerDrive/internal/common/config"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	cfg := config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "tallerdrive",
		Audience:  "tallerdrive",
	}

	token, exp, err := GenerateAccessToken(cfg, "u-1", "Ana", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if exp.Before(time.Now()) {
		t.Fatalf("expected exp in future")
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Subject != "u-1" {
		t.Fatalf("subject mismatch: %s", claims.Subject)
	}
	if claims.Name != "Ana" || claims.Role != "admin" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret-a", Issuer: "tallerdrive"}
	token, _, err := GenerateAccessToken(cfg, "u-1", "Ana", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := ParseAccessToken(config.AuthConfig{JWTSecret: "secret-b"}, token); err == nil {
		t.Fatalf("expected invalid signature to fail")
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	cfg := config.AuthConfig{JWTSecret: "secret", Issuer: "someone-else"}
	token, _, err := GenerateAccessToken(cfg, "u-1", "Ana", "admin", time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	check := config.AuthConfig{JWTSecret: "secret", Issuer: "tallerdrive"}
	if _, err := ParseAccessToken(check, token); err == nil {
		t.Fatalf("expected issuer mismatch to fail")
	}
}
