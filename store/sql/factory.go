package sqlstore

import (
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-vault/core"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds the persistence-backed vault stores from a bun
// DB or a go-persistence-bun client. It implements both the store factory
// and the store provider contracts.
type RepositoryFactory struct {
	db *bun.DB

	sessionTTL time.Duration
	codec      core.CredentialCodec
	cipher     core.SecretCipher

	secretStore     *SecretStore
	accessStore     *AccessStore
	clientStore     *ClientStore
	sessionStore    *SessionStore
	credentialStore *CredentialStore
}

type FactoryOption func(*RepositoryFactory)

// WithSessionTTL overrides the sign-in session lifetime enforced on
// consume and prune.
func WithSessionTTL(ttl time.Duration) FactoryOption {
	return func(f *RepositoryFactory) {
		if ttl > 0 {
			f.sessionTTL = ttl
		}
	}
}

// WithCredentialCodec overrides the payload codec used by the credential
// store.
func WithCredentialCodec(codec core.CredentialCodec) FactoryOption {
	return func(f *RepositoryFactory) {
		if codec != nil {
			f.codec = codec
		}
	}
}

// WithSecretCipher enables at-rest encryption of credential payloads.
func WithSecretCipher(cipher core.SecretCipher) FactoryOption {
	return func(f *RepositoryFactory) {
		if cipher != nil {
			f.cipher = cipher
		}
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{
		sessionTTL: core.DefaultSessionTTL,
		codec:      core.JSONCredentialCodec{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(factory)
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.secretStore != nil && f.credentialStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) SecretStore() core.SecretStore {
	if f == nil {
		return nil
	}
	return f.secretStore
}

func (f *RepositoryFactory) AccessStore() core.AccessStore {
	if f == nil {
		return nil
	}
	return f.accessStore
}

func (f *RepositoryFactory) ClientStore() core.ClientStore {
	if f == nil {
		return nil
	}
	return f.clientStore
}

func (f *RepositoryFactory) SessionStore() core.SessionStore {
	if f == nil {
		return nil
	}
	return f.sessionStore
}

func (f *RepositoryFactory) CredentialStore() core.CredentialStore {
	if f == nil {
		return nil
	}
	return f.credentialStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	secretRepo := repository.NewRepository[*secretRecord](f.db, secretHandlers())
	if validator, ok := secretRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid secret repository wiring: %w", err)
		}
	}

	accessRepo := repository.NewRepository[*accessGrantRecord](f.db, accessGrantHandlers())
	if validator, ok := accessRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid access grant repository wiring: %w", err)
		}
	}

	clientRepo := repository.NewRepository[*clientRecord](f.db, clientHandlers())
	if validator, ok := clientRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid client repository wiring: %w", err)
		}
	}

	credentialRepo := repository.NewRepository[*credentialRecord](f.db, credentialHandlers())
	if validator, ok := credentialRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}

	f.secretStore = &SecretStore{
		db:   f.db,
		repo: secretRepo,
	}
	f.accessStore = &AccessStore{
		db:   f.db,
		repo: accessRepo,
	}
	f.clientStore = &ClientStore{
		db:   f.db,
		repo: clientRepo,
	}
	f.credentialStore = &CredentialStore{
		db:     f.db,
		repo:   credentialRepo,
		codec:  f.codec,
		cipher: f.cipher,
	}
	sessionStore, err := NewSessionStore(f.db, f.sessionTTL)
	if err != nil {
		return err
	}
	f.sessionStore = sessionStore

	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
