package sqlstore

import "github.com/goliatone/go-vault/core"

var (
	_ core.SecretStore            = (*SecretStore)(nil)
	_ core.SecretStore            = (*CachedSecretStore)(nil)
	_ core.AccessStore            = (*AccessStore)(nil)
	_ core.ClientStore            = (*ClientStore)(nil)
	_ core.SessionStore           = (*SessionStore)(nil)
	_ core.CredentialStore        = (*CredentialStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
