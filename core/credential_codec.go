package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	CredentialPayloadFormatJSONV1 = "credential_token_json"
	CredentialPayloadVersionV1    = 1
)

// CredentialCodec serializes credential tokens for persistence. The stored
// payload may additionally pass through a SecretCipher before hitting disk.
type CredentialCodec interface {
	Format() string
	Version() int
	Encode(token CredentialToken) ([]byte, error)
	Decode(payload []byte) (CredentialToken, error)
}

type JSONCredentialCodec struct{}

func (JSONCredentialCodec) Format() string {
	return CredentialPayloadFormatJSONV1
}

func (JSONCredentialCodec) Version() int {
	return CredentialPayloadVersionV1
}

type jsonCredentialPayload struct {
	Provider              string     `json:"provider,omitempty"`
	TokenType             string     `json:"token_type,omitempty"`
	AccessToken           string     `json:"access_token,omitempty"`
	RefreshToken          string     `json:"refresh_token,omitempty"`
	Scopes                []string   `json:"scopes,omitempty"`
	ExpiresAt             *time.Time `json:"expires_at,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refresh_token_expires_at,omitempty"`
}

func (JSONCredentialCodec) Encode(token CredentialToken) ([]byte, error) {
	payload := jsonCredentialPayload{
		Provider:              strings.TrimSpace(token.Provider),
		TokenType:             strings.TrimSpace(token.TokenType),
		AccessToken:           strings.TrimSpace(token.AccessToken),
		RefreshToken:          strings.TrimSpace(token.RefreshToken),
		Scopes:                append([]string(nil), token.Scopes...),
		ExpiresAt:             timePointer(token.ExpiresAt),
		RefreshTokenExpiresAt: timePointer(token.RefreshTokenExpiresAt),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("core: encode credential payload: %w", err)
	}
	return encoded, nil
}

func (JSONCredentialCodec) Decode(payload []byte) (CredentialToken, error) {
	if len(payload) == 0 {
		return CredentialToken{}, fmt.Errorf("core: credential payload is empty")
	}
	decoded := jsonCredentialPayload{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return CredentialToken{}, fmt.Errorf("core: decode credential payload: %w", err)
	}
	return CredentialToken{
		Provider:              strings.TrimSpace(decoded.Provider),
		TokenType:             strings.TrimSpace(decoded.TokenType),
		AccessToken:           strings.TrimSpace(decoded.AccessToken),
		RefreshToken:          strings.TrimSpace(decoded.RefreshToken),
		Scopes:                append([]string(nil), decoded.Scopes...),
		ExpiresAt:             timeValue(decoded.ExpiresAt),
		RefreshTokenExpiresAt: timeValue(decoded.RefreshTokenExpiresAt),
	}, nil
}

func timePointer(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	clone := value.UTC()
	return &clone
}

func timeValue(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return value.UTC()
}
