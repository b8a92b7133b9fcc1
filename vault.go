package vault

import (
	"github.com/goliatone/go-vault/core"
	"github.com/goliatone/go-vault/security"
)

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Permission = core.Permission

const (
	PermissionRead   = core.PermissionRead
	PermissionCreate = core.PermissionCreate
	PermissionUpdate = core.PermissionUpdate
	PermissionDelete = core.PermissionDelete
	PermissionAll    = core.PermissionAll
)

type Secret = core.Secret
type SetOutcome = core.SetOutcome
type AccessGrant = core.AccessGrant
type Client = core.Client
type CreateClientInput = core.CreateClientInput
type UpdateClientInput = core.UpdateClientInput
type SignInSession = core.SignInSession
type CredentialToken = core.CredentialToken

type SecretStore = core.SecretStore
type AccessStore = core.AccessStore
type ClientStore = core.ClientStore
type SessionStore = core.SessionStore
type CredentialStore = core.CredentialStore
type SecretHasher = core.SecretHasher
type SecretCipher = core.SecretCipher
type Flow = core.Flow
type FlowRegistry = core.FlowRegistry
type FlowCredentials = core.FlowCredentials
type StaticFlowCredentials = core.StaticFlowCredentials
type RefreshCredentials = core.RefreshCredentials
type BasicAuthCredentials = core.BasicAuthCredentials

type BeginSignInRequest = core.BeginSignInRequest
type BeginSignInResponse = core.BeginSignInResponse
type CompleteSignInRequest = core.CompleteSignInRequest
type SignInCompletion = core.SignInCompletion

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithFlowRegistry      = core.WithFlowRegistry
	WithFlowCredentials   = core.WithFlowCredentials
	WithSecretStore       = core.WithSecretStore
	WithAccessStore       = core.WithAccessStore
	WithClientStore       = core.WithClientStore
	WithSessionStore      = core.WithSessionStore
	WithCredentialStore   = core.WithCredentialStore
	WithSecretHasher      = core.WithSecretHasher
	WithSecretCipher      = core.WithSecretCipher
	WithCredentialCodec   = core.WithCredentialCodec
	WithProfileResolver   = core.WithProfileResolver
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}

func NewFlowRegistry() *FlowRegistry {
	return core.NewFlowRegistry()
}

// NewSecretHasher builds the HMAC-SHA256 client-secret hasher from the
// server-wide key.
func NewSecretHasher(key string) (SecretHasher, error) {
	return security.NewHMACSecretHasherFromString(key)
}

// NewSecretCipher builds the AES-GCM envelope cipher used for credential
// payloads at rest.
func NewSecretCipher(key string) (SecretCipher, error) {
	return security.NewEnvelopeCipherFromString(key)
}
