package core

import (
	"testing"
	"time"
)

func TestTokenFromResponse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := TokenFromResponse("Google", TokenResponse{
		AccessToken:           "access-1",
		TokenType:             "bearer",
		ExpiresIn:             3600,
		Scope:                 "openid email",
		RefreshToken:          "refresh-1",
		RefreshTokenExpiresIn: 7200,
	}, now)
	if err != nil {
		t.Fatalf("token from response: %v", err)
	}
	if token.Provider != "google" {
		t.Fatalf("expected normalized provider, got %s", token.Provider)
	}
	if !token.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", token.ExpiresAt)
	}
	if !token.RefreshTokenExpiresAt.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("unexpected refresh expiry: %v", token.RefreshTokenExpiresAt)
	}
	if len(token.Scopes) != 2 || token.Scopes[0] != "openid" {
		t.Fatalf("unexpected scopes: %v", token.Scopes)
	}
}

func TestTokenFromResponse_RequiresAccessToken(t *testing.T) {
	if _, err := TokenFromResponse("google", TokenResponse{TokenType: "bearer"}, time.Now()); err == nil {
		t.Fatalf("expected missing access token to fail")
	}
	if _, err := TokenFromResponse("  ", TokenResponse{AccessToken: "a"}, time.Now()); err == nil {
		t.Fatalf("expected missing provider to fail")
	}
}

func TestCredentialToken_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := &CredentialToken{ExpiresAt: now.Add(10 * time.Minute)}

	if token.IsExpired(now, 5*time.Minute) {
		t.Fatalf("token outside threshold should be fresh")
	}
	if !token.IsExpired(now, 10*time.Minute) {
		t.Fatalf("token at threshold boundary should be expired")
	}
	if !token.IsExpired(now.Add(11*time.Minute), 0) {
		t.Fatalf("token past expiry should be expired")
	}

	var nilToken *CredentialToken
	if !nilToken.IsExpired(now, 0) {
		t.Fatalf("nil token should be expired")
	}

	unbounded := &CredentialToken{}
	if unbounded.IsExpired(now, 5*time.Minute) {
		t.Fatalf("token without expiry should never expire")
	}
}

func TestCredentialToken_RefreshPreservesRefreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := TokenFromResponse("github", TokenResponse{
		AccessToken:  "access-1",
		TokenType:    "bearer",
		ExpiresIn:    3600,
		RefreshToken: "refresh-1",
	}, now)
	if err != nil {
		t.Fatalf("token from response: %v", err)
	}

	err = token.RefreshFromResponse(TokenResponse{
		AccessToken: "access-2",
		TokenType:   "bearer",
		ExpiresIn:   1800,
	}, now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if token.AccessToken != "access-2" {
		t.Fatalf("expected replaced access token, got %s", token.AccessToken)
	}
	if token.RefreshToken != "refresh-1" {
		t.Fatalf("expected preserved refresh token, got %s", token.RefreshToken)
	}

	err = token.RefreshFromResponse(TokenResponse{
		AccessToken:  "access-3",
		ExpiresIn:    1800,
		RefreshToken: "refresh-2",
	}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("refresh with rotation: %v", err)
	}
	if token.RefreshToken != "refresh-2" {
		t.Fatalf("expected rotated refresh token, got %s", token.RefreshToken)
	}
}

func TestTokenResponse_Validate(t *testing.T) {
	response := TokenResponse{
		AccessToken: "access",
		TokenType:   "bearer",
		Scope:       "repo:read repo:write",
	}
	if err := response.Validate([]string{"repo:read"}); err != nil {
		t.Fatalf("expected granted superset to validate: %v", err)
	}
	if err := response.Validate([]string{"repo:read", "admin"}); err == nil {
		t.Fatalf("expected missing scope to fail validation")
	}
	if err := (TokenResponse{TokenType: "bearer"}).Validate(nil); err == nil {
		t.Fatalf("expected missing access token to fail validation")
	}
	if err := (TokenResponse{AccessToken: "a"}).Validate(nil); err == nil {
		t.Fatalf("expected missing token type to fail validation")
	}
}

func TestSplitScopes(t *testing.T) {
	if got := SplitScopes("a b,c  d"); len(got) != 4 {
		t.Fatalf("unexpected scopes: %v", got)
	}
	if got := SplitScopes("   "); len(got) != 0 {
		t.Fatalf("expected empty scopes, got %v", got)
	}
}
