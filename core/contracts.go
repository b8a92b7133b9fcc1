package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// SecretStore is the pure keyed store behind a vault. It carries no
// permission logic; the gateway enforces access before every call.
type SecretStore interface {
	Get(ctx context.Context, label, key string) (Secret, error)
	Has(ctx context.Context, label, key string) (bool, error)
	Set(ctx context.Context, label, key, value string) (SetOutcome, error)
	Delete(ctx context.Context, label, key string) error
	ListKeys(ctx context.Context, label string) ([]string, error)
}

// AccessStore persists per-(client, label) permission masks. Grant replaces
// the whole mask; it never merges. HasAccess returns false, not an error,
// when no grant row exists.
type AccessStore interface {
	Grant(ctx context.Context, clientID, label string, mask Permission) error
	Revoke(ctx context.Context, clientID, label string) error
	HasAccess(ctx context.Context, clientID, label string, required Permission) (bool, error)
	GetMask(ctx context.Context, clientID, label string) (Permission, error)
}

// ClientStore persists the vault's private client registry. Secret hashes
// are write-only from the registry's perspective: plaintext secrets are
// never stored.
type ClientStore interface {
	Create(ctx context.Context, client Client, secretHash string) (Client, error)
	Get(ctx context.Context, id string) (Client, error)
	List(ctx context.Context) ([]Client, error)
	Update(ctx context.Context, id string, in UpdateClientInput) (Client, error)
	Delete(ctx context.Context, id string) error
	GetSecretHash(ctx context.Context, id string) (string, error)
	ReplaceSecretHash(ctx context.Context, id, secretHash string) error
}

// SessionStore persists sign-in sessions keyed by their CSRF state.
// Consume deletes on read: a state value is validated exactly once.
type SessionStore interface {
	Save(ctx context.Context, session SignInSession) error
	Consume(ctx context.Context, state string) (SignInSession, error)
	Delete(ctx context.Context, state string) error
	PruneExpired(ctx context.Context, now time.Time) (int, error)
}

// CredentialStore persists normalized provider tokens keyed by
// (provider, subject). Writes are read-modify-write without optimistic
// locking: concurrent refreshes resolve last-write-wins.
type CredentialStore interface {
	Put(ctx context.Context, provider, subject string, token CredentialToken) error
	Get(ctx context.Context, provider, subject string) (CredentialToken, error)
	Delete(ctx context.Context, provider, subject string) error
}

// SecretHasher produces and verifies keyed one-way hashes of client
// secrets. Verification must run in constant time over the hash material.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
}

// SecretCipher encrypts credential payloads at rest.
type SecretCipher interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// ExchangeCodeRequest carries the code-for-token exchange inputs.
type ExchangeCodeRequest struct {
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// BasicAuthCredentials is the alternative token-refresh credential mode
// some providers require in place of form-encoded client credentials.
type BasicAuthCredentials struct {
	Username string
	Password string
}

// RefreshCredentials selects exactly one refresh credential mode: either
// BasicAuth, or the ClientID/ClientSecret pair. Supplying both or neither
// is an input error.
type RefreshCredentials struct {
	BasicAuth    *BasicAuthCredentials
	ClientID     string
	ClientSecret string
}

func (c RefreshCredentials) Validate() error {
	hasBasic := c.BasicAuth != nil
	hasClient := strings.TrimSpace(c.ClientID) != "" || strings.TrimSpace(c.ClientSecret) != ""
	if hasBasic && hasClient {
		return fmt.Errorf("core: provide basic auth or client credentials, not both")
	}
	if !hasBasic && !hasClient {
		return fmt.Errorf("core: refresh credentials are required")
	}
	return nil
}

// Flow is the per-provider OAuth2 Authorization-Code behavior. Flows are
// looked up by tag through the FlowRegistry; each flow is configured once
// at startup and never mutated afterwards.
type Flow interface {
	Tag() string
	Scopes() []string
	BuildAuthorizationURL(session SignInSession, redirectURI string, extra map[string]string) (string, error)
	ExchangeCode(ctx context.Context, req ExchangeCodeRequest) (TokenResponse, error)
	RefreshToken(ctx context.Context, token *CredentialToken, creds RefreshCredentials, force bool) error
	FetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error)
}

// FlowCredentials resolves the OAuth2 client credentials registered with an
// external provider. Implementations may read static configuration or the
// vault itself.
type FlowCredentials interface {
	Resolve(ctx context.Context, provider string) (clientID, clientSecret string, err error)
}

// StaticFlowCredentials serves credentials from an in-memory map keyed by
// provider tag.
type StaticFlowCredentials map[string]BasicAuthCredentials

func (c StaticFlowCredentials) Resolve(_ context.Context, provider string) (string, string, error) {
	entry, ok := c[strings.TrimSpace(strings.ToLower(provider))]
	if !ok {
		return "", "", fmt.Errorf("core: no credentials configured for provider %q", provider)
	}
	return entry.Username, entry.Password, nil
}

// StoreProvider exposes the persistence-backed stores a repository factory
// builds.
type StoreProvider interface {
	SecretStore() SecretStore
	AccessStore() AccessStore
	ClientStore() ClientStore
	SessionStore() SessionStore
	CredentialStore() CredentialStore
}

// RepositoryStoreFactory builds stores from an opaque persistence client
// (a *bun.DB or a go-persistence-bun client).
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// MetricsRecorder receives operation counters and latency histograms.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
