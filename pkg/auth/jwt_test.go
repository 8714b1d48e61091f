package auth

import (
	"testing"

	"peermatch-service/internal/config"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{Secret: "unit-test-secret", Expire: 1},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	setTestConfig(t)

	token, err := GenerateToken("u42", "bob")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u42" || claims.Username != "bob" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsTampered(t *testing.T) {
	setTestConfig(t)

	token, err := GenerateToken("u42", "bob")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseToken(token + "x"); err == nil {
		t.Fatal("expected error for tampered token")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	setTestConfig(t)
	token, err := GenerateToken("u42", "bob")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	config.GlobalConfig.JWT.Secret = "rotated"
	if _, err := ParseToken(token); err == nil {
		t.Fatal("expected error after secret rotation")
	}
}
