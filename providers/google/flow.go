package google

import (
	"time"

	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/providers"
)

const (
	ProviderTag = "google"
	AuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	TokenURL    = "https://oauth2.googleapis.com/token"
	UserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
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

// DefaultConfig requests offline access so Google issues a refresh token.
func DefaultConfig() Config {
	return Config{
		AuthURL:     AuthURL,
		TokenURL:    TokenURL,
		UserInfoURL: UserInfoURL,
		Scopes:      []string{"openid", "email", "profile"},
		ExtraParams: map[string]string{"access_type": "offline"},
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
	if cfg.ExtraParams == nil {
		cfg.ExtraParams = defaults.ExtraParams
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
