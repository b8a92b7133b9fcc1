package core

import (
	"fmt"
	"strings"
	"time"
)

// Secret is a single (label, key) -> value entry inside a vault namespace.
type Secret struct {
	ID        string
	Label     string
	Key       string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetOutcome distinguishes a create from an overwrite on SecretStore.Set.
type SetOutcome string

const (
	SetOutcomeCreated SetOutcome = "created"
	SetOutcomeUpdated SetOutcome = "updated"
)

// AccessGrant is the permission mask a client holds for a vault label.
// Absence of a grant row means zero permissions.
type AccessGrant struct {
	ID        string
	ClientID  string
	Label     string
	Mask      Permission
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Client is an identity in the vault's private registry. The registry is
// deliberately independent of any platform-wide client model so the vault
// can authenticate callers without depending on storage that may itself
// depend on the vault.
type Client struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// CreateClientInput carries the caller-supplied fields for a new client.
type CreateClientInput struct {
	Name        string
	Description string
}

func (in CreateClientInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("core: client name is required")
	}
	return nil
}

// UpdateClientInput carries mutable client fields. Nil means "leave as is".
type UpdateClientInput struct {
	Name        *string
	Description *string
}

// SignInStatus tracks a federation session through its lifecycle.
type SignInStatus string

const (
	StatusInit             SignInStatus = "init"
	StatusAwaitingCallback SignInStatus = "awaiting_callback"
	StatusTokenObtained    SignInStatus = "token_obtained"
	StatusFailed           SignInStatus = "failed"
	StatusExpired          SignInStatus = "expired"
)

// Terminal reports whether the session can no longer progress. A session
// back at StatusInit after an invalid_grant restart is not terminal.
func (s SignInStatus) Terminal() bool {
	switch s {
	case StatusTokenObtained, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

// canTransition encodes the session state machine. invalid_grant resolution
// is the single loop edge: awaiting_callback -> init.
func (s SignInStatus) canTransition(next SignInStatus) bool {
	switch s {
	case StatusInit:
		return next == StatusAwaitingCallback || next == StatusExpired
	case StatusAwaitingCallback:
		return next == StatusTokenObtained ||
			next == StatusFailed ||
			next == StatusExpired ||
			next == StatusInit
	default:
		return false
	}
}

// SignInSession is the ephemeral per-attempt state of an authorization-code
// sign-in. Sessions are keyed by their unguessable CSRF state and are
// single-use: they are deleted on terminal resolution.
type SignInSession struct {
	State     string
	Provider  string
	ClientID  string
	Scopes    []string
	Target    string
	Status    SignInStatus
	CreatedAt time.Time
}

// Expired reports whether the session's TTL elapsed relative to CreatedAt.
func (s SignInSession) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if s.CreatedAt.IsZero() {
		return false
	}
	return now.UTC().Sub(s.CreatedAt.UTC()) > ttl
}

// Transition validates and applies a status change in place.
func (s *SignInSession) Transition(next SignInStatus) error {
	if s == nil {
		return fmt.Errorf("core: session is nil")
	}
	if !s.Status.canTransition(next) {
		return fmt.Errorf("core: invalid session transition %s -> %s", s.Status, next)
	}
	s.Status = next
	return nil
}

func cloneSession(session SignInSession) SignInSession {
	cloned := session
	cloned.Scopes = append([]string(nil), session.Scopes...)
	return cloned
}

// BeginSignInRequest starts a federation attempt for an external provider.
type BeginSignInRequest struct {
	Provider    string
	ClientID    string
	Scopes      []string
	Target      string
	RedirectURI string
	LoginHint   string
}

// BeginSignInResponse carries the authorization redirect for the caller's
// user agent plus the session state for correlation.
type BeginSignInResponse struct {
	RedirectURL string
	State       string
}

// CompleteSignInRequest carries the raw callback query parameters.
type CompleteSignInRequest struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
	RedirectURI      string
}

// SignInCompletion is the successful outcome of a federation attempt.
type SignInCompletion struct {
	Token   *CredentialToken
	Target  string
	Profile map[string]any
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
