package core

import (
	"fmt"
	"strings"
	"time"
)

// TokenResponse is the raw body of a token-endpoint exchange or refresh.
// Providers disagree on optional fields; zero values mean "absent".
type TokenResponse struct {
	AccessToken           string `json:"access_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	Scope                 string `json:"scope"`
	RefreshToken          string `json:"refresh_token,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in,omitempty"`
	ErrorCode             string `json:"error,omitempty"`
	ErrorDescription      string `json:"error_description,omitempty"`
}

// Validate enforces the response shape required after a successful
// exchange: required fields present and granted scopes covering every
// requested scope. A scope shortfall is an explicit failure, never a
// silent downgrade.
func (r TokenResponse) Validate(requestedScopes []string) error {
	if strings.TrimSpace(r.AccessToken) == "" {
		return fmt.Errorf("core: token response missing access_token")
	}
	if strings.TrimSpace(r.TokenType) == "" {
		return fmt.Errorf("core: token response missing token_type")
	}
	granted := SplitScopes(r.Scope)
	missing := missingScopes(requestedScopes, granted)
	if len(missing) > 0 {
		return fmt.Errorf("core: token response missing scopes: %s", strings.Join(missing, " "))
	}
	return nil
}

// CredentialToken is the normalized access/refresh token pair with expiry
// bookkeeping. Refresh mutates the instance in place.
type CredentialToken struct {
	Provider              string
	TokenType             string
	AccessToken           string
	ExpiresAt             time.Time
	Scopes                []string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// TokenFromResponse builds a token from a provider response, anchoring
// expiry at now + expires_in. Refresh fields are copied only when present.
func TokenFromResponse(provider string, response TokenResponse, now time.Time) (*CredentialToken, error) {
	token := &CredentialToken{Provider: strings.TrimSpace(strings.ToLower(provider))}
	if token.Provider == "" {
		return nil, fmt.Errorf("core: token provider is required")
	}
	if err := token.apply(response, now); err != nil {
		return nil, err
	}
	return token, nil
}

// IsExpired reports now >= expiresAt - threshold. The threshold absorbs
// clock skew and in-flight request latency at the expiry boundary.
func (t *CredentialToken) IsExpired(now time.Time, threshold time.Duration) bool {
	if t == nil {
		return true
	}
	if threshold < 0 {
		threshold = 0
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.UTC().Before(t.ExpiresAt.UTC().Add(-threshold))
}

// RefreshFromResponse applies a refresh response in place. A response that
// omits refresh_token keeps the previous refresh token; providers routinely
// issue single-use refresh tokens only on the initial exchange.
func (t *CredentialToken) RefreshFromResponse(response TokenResponse, now time.Time) error {
	if t == nil {
		return fmt.Errorf("core: credential token is nil")
	}
	previousRefresh := t.RefreshToken
	previousRefreshExpiry := t.RefreshTokenExpiresAt
	if err := t.apply(response, now); err != nil {
		return err
	}
	if strings.TrimSpace(response.RefreshToken) == "" {
		t.RefreshToken = previousRefresh
		t.RefreshTokenExpiresAt = previousRefreshExpiry
	}
	return nil
}

func (t *CredentialToken) apply(response TokenResponse, now time.Time) error {
	accessToken := strings.TrimSpace(response.AccessToken)
	if accessToken == "" {
		return fmt.Errorf("core: token response missing access_token")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	t.TokenType = normalizeTokenType(response.TokenType)
	t.AccessToken = accessToken
	t.ExpiresAt = now.Add(time.Duration(response.ExpiresIn) * time.Second)
	t.Scopes = SplitScopes(response.Scope)
	if refresh := strings.TrimSpace(response.RefreshToken); refresh != "" {
		t.RefreshToken = refresh
		t.RefreshTokenExpiresAt = time.Time{}
		if response.RefreshTokenExpiresIn > 0 {
			t.RefreshTokenExpiresAt = now.Add(time.Duration(response.RefreshTokenExpiresIn) * time.Second)
		}
	}
	return nil
}

func normalizeTokenType(value string) string {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return "Bearer"
	}
	return normalized
}

// SplitScopes parses a space- or comma-separated scope string.
func SplitScopes(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return []string{}
	}
	return strings.Fields(strings.ReplaceAll(trimmed, ",", " "))
}

func missingScopes(requested, granted []string) []string {
	grantedSet := make(map[string]struct{}, len(granted))
	for _, scope := range granted {
		grantedSet[strings.TrimSpace(scope)] = struct{}{}
	}
	missing := make([]string, 0, len(requested))
	for _, scope := range requested {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if _, ok := grantedSet[scope]; !ok {
			missing = append(missing, scope)
		}
	}
	return missing
}
