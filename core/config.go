package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultSessionTTL bounds a sign-in attempt. Expiry is evaluated at
	// callback processing time, before any state comparison.
	DefaultSessionTTL = 10 * time.Minute

	// DefaultTokenExpiryThreshold is subtracted from a token's expiry when
	// checking freshness, so callers refresh before the boundary race.
	DefaultTokenExpiryThreshold = 5 * time.Minute

	// DefaultProviderTimeout bounds every outbound provider request.
	DefaultProviderTimeout = 10 * time.Second
)

type Config struct {
	ServiceName          string        `koanf:"service_name" mapstructure:"service_name"`
	SessionTTL           time.Duration `koanf:"session_ttl" mapstructure:"session_ttl"`
	TokenExpiryThreshold time.Duration `koanf:"token_expiry_threshold" mapstructure:"token_expiry_threshold"`
	ProviderTimeout      time.Duration `koanf:"provider_timeout" mapstructure:"provider_timeout"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:          "vault",
		SessionTTL:           DefaultSessionTTL,
		TokenExpiryThreshold: DefaultTokenExpiryThreshold,
		ProviderTimeout:      DefaultProviderTimeout,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("core: session_ttl must not be negative")
	}
	if c.TokenExpiryThreshold < 0 {
		return fmt.Errorf("core: token_expiry_threshold must not be negative")
	}
	if c.ProviderTimeout < 0 {
		return fmt.Errorf("core: provider_timeout must not be negative")
	}
	return nil
}
