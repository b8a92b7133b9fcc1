package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-vault/identity"
)

var ErrFlowNotFound = errors.New("core: sign-in flow not found")

// Service is the vault gateway: every secret operation passes through its
// permission checks before touching the underlying store. It also owns the
// private client registry and the OAuth2 federation flows.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	registry          *FlowRegistry
	flowCredentials   FlowCredentials
	secretStore       SecretStore
	accessStore       AccessStore
	clientStore       ClientStore
	sessionStore      SessionStore
	credentialStore   CredentialStore
	secretHasher      SecretHasher
	secretCipher      SecretCipher
	credentialCodec   CredentialCodec
	profileResolver   *identity.Resolver
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	Registry        *FlowRegistry
	FlowCredentials FlowCredentials
	SecretStore     SecretStore
	AccessStore     AccessStore
	ClientStore     ClientStore
	SessionStore    SessionStore
	CredentialStore CredentialStore
	SecretHasher    SecretHasher
	SecretCipher    SecretCipher
	CredentialCodec CredentialCodec
	ProfileResolver *identity.Resolver
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("vault", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("vault"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.registry == nil {
		builder.registry = NewFlowRegistry()
	}
	if builder.credentialCodec == nil {
		builder.credentialCodec = JSONCredentialCodec{}
	}
	if builder.profileResolver == nil {
		builder.profileResolver = identity.DefaultResolver()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil && needsStores(builder) {
		var storeProvider StoreProvider
		if factory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			built, buildErr := factory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			storeProvider = built
		} else if direct, ok := builder.repositoryFactory.(StoreProvider); ok {
			storeProvider = direct
		}
		if storeProvider != nil {
			if builder.secretStore == nil {
				builder.secretStore = storeProvider.SecretStore()
			}
			if builder.accessStore == nil {
				builder.accessStore = storeProvider.AccessStore()
			}
			if builder.clientStore == nil {
				builder.clientStore = storeProvider.ClientStore()
			}
			if builder.sessionStore == nil {
				builder.sessionStore = storeProvider.SessionStore()
			}
			if builder.credentialStore == nil {
				builder.credentialStore = storeProvider.CredentialStore()
			}
		}
	}
	if builder.sessionStore == nil {
		builder.sessionStore = NewMemorySessionStore(finalConfig.SessionTTL)
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		registry:          builder.registry,
		flowCredentials:   builder.flowCredentials,
		secretStore:       builder.secretStore,
		accessStore:       builder.accessStore,
		clientStore:       builder.clientStore,
		sessionStore:      builder.sessionStore,
		credentialStore:   builder.credentialStore,
		secretHasher:      builder.secretHasher,
		secretCipher:      builder.secretCipher,
		credentialCodec:   builder.credentialCodec,
		profileResolver:   builder.profileResolver,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func needsStores(builder serviceBuilder) bool {
	return builder.secretStore == nil ||
		builder.accessStore == nil ||
		builder.clientStore == nil ||
		builder.sessionStore == nil ||
		builder.credentialStore == nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Registry() *FlowRegistry {
	if s == nil {
		return nil
	}
	return s.registry
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		Registry:        s.registry,
		FlowCredentials: s.flowCredentials,
		SecretStore:     s.secretStore,
		AccessStore:     s.accessStore,
		ClientStore:     s.clientStore,
		SessionStore:    s.sessionStore,
		CredentialStore: s.credentialStore,
		SecretHasher:    s.secretHasher,
		SecretCipher:    s.secretCipher,
		CredentialCodec: s.credentialCodec,
		ProfileResolver: s.profileResolver,
	}
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// GetSecret returns a secret after verifying the caller holds READ on the
// label. Access is checked before existence so a caller without READ cannot
// distinguish a present key from an absent one.
func (s *Service) GetSecret(ctx context.Context, clientID, label, key string) (secret Secret, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID, "label": label, "key": key}
	defer func() {
		s.observeOperation(ctx, startedAt, "secret_get", err, fields)
	}()

	if err = s.validateSecretRef(clientID, label, key); err != nil {
		err = s.mapError(err)
		return Secret{}, err
	}
	if err = s.requirePermission(ctx, clientID, label, PermissionRead); err != nil {
		return Secret{}, err
	}

	secret, err = s.secretStore.Get(ctx, label, key)
	if err != nil {
		err = s.mapError(err)
		return Secret{}, err
	}
	return secret, nil
}

// SetSecret writes a secret value. The store is consulted first: an absent
// key requires CREATE, an existing key requires UPDATE. A caller holding
// only one of the two can perform exactly that half of the operation.
func (s *Service) SetSecret(ctx context.Context, clientID, label, key, value string) (outcome SetOutcome, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID, "label": label, "key": key}
	defer func() {
		s.observeOperation(ctx, startedAt, "secret_set", err, fields)
	}()

	if err = s.validateSecretRef(clientID, label, key); err != nil {
		err = s.mapError(err)
		return "", err
	}
	if s.secretStore == nil {
		err = s.mapError(fmt.Errorf("core: secret store is not configured"))
		return "", err
	}

	exists, err := s.secretStore.Has(ctx, label, key)
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	required := PermissionCreate
	if exists {
		required = PermissionUpdate
	}
	if err = s.requirePermission(ctx, clientID, label, required); err != nil {
		return "", err
	}

	outcome, err = s.secretStore.Set(ctx, label, key, value)
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	fields["outcome"] = string(outcome)
	return outcome, nil
}

// DeleteSecret removes a secret after verifying DELETE on the label.
func (s *Service) DeleteSecret(ctx context.Context, clientID, label, key string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID, "label": label, "key": key}
	defer func() {
		s.observeOperation(ctx, startedAt, "secret_delete", err, fields)
	}()

	if err = s.validateSecretRef(clientID, label, key); err != nil {
		err = s.mapError(err)
		return err
	}
	if err = s.requirePermission(ctx, clientID, label, PermissionDelete); err != nil {
		return err
	}

	if err = s.secretStore.Delete(ctx, label, key); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

// ListSecretKeys enumerates the key names under a label; values are never
// included. Requires READ.
func (s *Service) ListSecretKeys(ctx context.Context, clientID, label string) (keys []string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID, "label": label}
	defer func() {
		s.observeOperation(ctx, startedAt, "secret_list_keys", err, fields)
	}()

	if err = s.validateGrantRef(clientID, label); err != nil {
		err = s.mapError(err)
		return nil, err
	}
	if s.secretStore == nil {
		err = s.mapError(fmt.Errorf("core: secret store is not configured"))
		return nil, err
	}
	if err = s.requirePermission(ctx, clientID, label, PermissionRead); err != nil {
		return nil, err
	}

	keys, err = s.secretStore.ListKeys(ctx, label)
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return keys, nil
}

// GrantAccess sets a client's permission mask for a label, replacing any
// existing mask outright. Granting is an administrative operation and is not
// itself permission checked.
func (s *Service) GrantAccess(ctx context.Context, clientID, label string, mask Permission) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID, "label": label, "mask": mask.String()}
	defer func() {
		s.observeOperation(ctx, startedAt, "access_grant", err, fields)
	}()

	if err = s.validateGrantRef(clientID, label); err != nil {
		err = s.mapError(err)
		return err
	}
	if mask&^PermissionAll != 0 {
		err = s.mapError(fmt.Errorf("core: invalid permission mask %d", mask))
		return err
	}
	if s.accessStore == nil {
		err = s.mapError(fmt.Errorf("core: access store is not configured"))
		return err
	}

	if err = s.accessStore.Grant(ctx, clientID, label, mask); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

// RevokeAccess removes a client's grant for a label. Revoking an absent
// grant is a no-op.
func (s *Service) RevokeAccess(ctx context.Context, clientID, label string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID, "label": label}
	defer func() {
		s.observeOperation(ctx, startedAt, "access_revoke", err, fields)
	}()

	if err = s.validateGrantRef(clientID, label); err != nil {
		err = s.mapError(err)
		return err
	}
	if s.accessStore == nil {
		err = s.mapError(fmt.Errorf("core: access store is not configured"))
		return err
	}

	if err = s.accessStore.Revoke(ctx, clientID, label); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

// CheckAccess reports whether a client holds every bit in required for a
// label. A missing grant row yields false, never an error.
func (s *Service) CheckAccess(ctx context.Context, clientID, label string, required Permission) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: service is not configured")
	}
	if err := s.validateGrantRef(clientID, label); err != nil {
		return false, s.mapError(err)
	}
	if s.accessStore == nil {
		return false, s.mapError(fmt.Errorf("core: access store is not configured"))
	}
	allowed, err := s.accessStore.HasAccess(ctx, clientID, label, required)
	if err != nil {
		return false, s.mapError(err)
	}
	return allowed, nil
}

func (s *Service) requirePermission(ctx context.Context, clientID, label string, required Permission) error {
	if s.accessStore == nil {
		return s.mapError(fmt.Errorf("core: access store is not configured"))
	}
	mask, err := s.accessStore.GetMask(ctx, clientID, label)
	if err != nil {
		return s.mapError(err)
	}
	if mask.Has(required) {
		return nil
	}
	return s.mapError(NewAccessDeniedError(clientID, label, required.MissingNames(mask)))
}

func (s *Service) validateSecretRef(clientID, label, key string) error {
	if s == nil {
		return fmt.Errorf("core: service is not configured")
	}
	if strings.TrimSpace(clientID) == "" {
		return fmt.Errorf("core: client id is required")
	}
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("core: label is required")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("core: key is required")
	}
	if s.secretStore == nil {
		return fmt.Errorf("core: secret store is not configured")
	}
	return nil
}

func (s *Service) validateGrantRef(clientID, label string) error {
	if s == nil {
		return fmt.Errorf("core: service is not configured")
	}
	if strings.TrimSpace(clientID) == "" {
		return fmt.Errorf("core: client id is required")
	}
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("core: label is required")
	}
	return nil
}
