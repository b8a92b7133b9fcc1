// Package discord wires the Discord OAuth2 endpoints. Discord expects token
// refreshes to authenticate with HTTP basic auth rather than form-encoded
// client credentials; pass BasicAuth refresh credentials when calling
// EnsureFreshToken for this flow.
package discord

import (
	"time"

	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/providers"
)

const (
	ProviderTag = "discord"
	AuthURL     = "https://discord.com/oauth2/authorize"
	TokenURL    = "https://discord.com/api/oauth2/token"
	UserInfoURL = "https://discord.com/api/users/@me"
)

type Config struct {
	AuthURL        string
	TokenURL       string
	UserInfoURL    string
	Scopes         []string
	ExtraParams    map[string]string
	TokenParams    map[string]string
	UserInfoParams map[string]string
	Headers        map[string]string
	RequestTimeout time.Duration
	HTTPClient     providers.HTTPDoer
}

func DefaultConfig() Config {
	return Config{
		AuthURL:     AuthURL,
		TokenURL:    TokenURL,
		UserInfoURL: UserInfoURL,
		Scopes:      []string{"identify", "email"},
	}
}

func New(cfg Config) (core.Flow, error) {
	defaults := DefaultConfig()
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaults.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaults.TokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaults.UserInfoURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = defaults.Scopes
	}
	return providers.NewOAuth2Flow(providers.OAuth2Config{
		Tag:            ProviderTag,
		AuthURL:        cfg.AuthURL,
		TokenURL:       cfg.TokenURL,
		UserInfoURL:    cfg.UserInfoURL,
		Scopes:         cfg.Scopes,
		ExtraParams:    cfg.ExtraParams,
		TokenParams:    cfg.TokenParams,
		UserInfoParams: cfg.UserInfoParams,
		Headers:        cfg.Headers,
		RequestTimeout: cfg.RequestTimeout,
		HTTPClient:     cfg.HTTPClient,
	})
}
