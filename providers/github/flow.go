package github

import (
	"time"

	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/providers"
)

const (
	ProviderTag = "github"
	AuthURL     = "https://github.com/login/oauth/authorize"
	TokenURL    = "https://github.com/login/oauth/access_token"
	UserInfoURL = "https://api.github.com/user"
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

// DefaultConfig pins the REST API version header GitHub recommends for
// user-info calls.
func DefaultConfig() Config {
	return Config{
		AuthURL:     AuthURL,
		TokenURL:    TokenURL,
		UserInfoURL: UserInfoURL,
		Scopes:      []string{"read:user", "user:email"},
		Headers:     map[string]string{"X-GitHub-Api-Version": "2022-11-28"},
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
	if cfg.Headers == nil {
		cfg.Headers = defaults.Headers
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
