package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestReviewerTokenRoundTrip(t *testing.T) {
	auth := NewAuthService("test-secret-key-for-jwt")

	token, err := auth.IssueReviewerToken("ayse", time.Hour)
	if err != nil {
		t.Fatalf("IssueReviewerToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	reviewer, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if reviewer.Name != "ayse" {
		t.Errorf("Name: got %q, want %q", reviewer.Name, "ayse")
	}
}

func TestReviewerTokenExpired(t *testing.T) {
	auth := NewAuthService("test-secret-key-for-jwt")

	token, err := auth.IssueReviewerToken("ayse", -1*time.Hour)
	if err != nil {
		t.Fatalf("IssueReviewerToken: %v", err)
	}
	if _, err := auth.ValidateToken(token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestReviewerTokenWrongSecret(t *testing.T) {
	token, err := NewAuthService("secret-a").IssueReviewerToken("ayse", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewAuthService("secret-b").ValidateToken(token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestReviewerTokenInvalid(t *testing.T) {
	auth := NewAuthService("test-secret-key-for-jwt")
	if _, err := auth.ValidateToken("garbage.token.here"); err == nil {
		t.Fatal("expected error for invalid token")
	}
}

func TestReviewerTokenWithoutExpiry(t *testing.T) {
	secret := []byte("test-secret-key-for-jwt")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "ayse",
		Issuer:  tokenIssuer,
	}).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewAuthService(string(secret)).ValidateToken(token); err == nil {
		t.Fatal("expected error for token without exp")
	}
}

func TestAuthDisabled(t *testing.T) {
	auth := NewAuthService("")
	if auth.Enabled() {
		t.Fatal("expected disabled auth service")
	}
	if _, err := auth.IssueReviewerToken("ayse", time.Hour); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("IssueReviewerToken err = %v", err)
	}
	if _, err := auth.ValidateToken("x"); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("ValidateToken err = %v", err)
	}
	if _, err := NewAuthService("s").IssueReviewerToken(" ", time.Hour); err == nil {
		t.Error("expected error for empty subject")
	}
}
