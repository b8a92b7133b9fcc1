package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-vault/core"
	vaultmigrations "github.com/goliatone/go-vault/migrations"
	"github.com/goliatone/go-vault/security"
	sqlstore "github.com/goliatone/go-vault/store/sql"
)

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"vault_secrets",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "vault_secrets" {
		t.Fatalf("expected vault_secrets table, got %q", tableName)
	}
}

func TestSecretStore_SetResolvesCreateVersusUpdate(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.SecretStore()

	outcome, err := store.Set(ctx, "billing", "api-key", "v1")
	if err != nil {
		t.Fatalf("first set: %v", err)
	}
	if outcome != core.SetOutcomeCreated {
		t.Fatalf("expected created outcome, got %q", outcome)
	}

	outcome, err = store.Set(ctx, "billing", "api-key", "v2")
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if outcome != core.SetOutcomeUpdated {
		t.Fatalf("expected updated outcome, got %q", outcome)
	}

	secret, err := store.Get(ctx, "billing", "api-key")
	if err != nil {
		t.Fatalf("get secret: %v", err)
	}
	if secret.Value != "v2" {
		t.Fatalf("expected overwritten value, got %q", secret.Value)
	}

	exists, err := store.Has(ctx, "billing", "api-key")
	if err != nil {
		t.Fatalf("has secret: %v", err)
	}
	if !exists {
		t.Fatalf("expected secret to exist")
	}

	if _, err := store.Set(ctx, "billing", "smtp-password", "hunter2"); err != nil {
		t.Fatalf("set second secret: %v", err)
	}
	keys, err := store.ListKeys(ctx, "billing")
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "api-key" || keys[1] != "smtp-password" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	if err := store.Delete(ctx, "billing", "api-key"); err != nil {
		t.Fatalf("delete secret: %v", err)
	}
	if _, err := store.Get(ctx, "billing", "api-key"); err == nil {
		t.Fatalf("expected get after delete to fail")
	}
	if err := store.Delete(ctx, "billing", "api-key"); err == nil {
		t.Fatalf("expected delete of missing secret to fail")
	}
}

func TestAccessStore_GrantReplacesMask(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.AccessStore()

	mask, err := store.GetMask(ctx, "client-1", "billing")
	if err != nil {
		t.Fatalf("get mask before grant: %v", err)
	}
	if mask != 0 {
		t.Fatalf("expected zero mask before grant, got %v", mask)
	}

	if err := store.Grant(ctx, "client-1", "billing", core.PermissionRead|core.PermissionCreate); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	if err := store.Grant(ctx, "client-1", "billing", core.PermissionDelete); err != nil {
		t.Fatalf("second grant: %v", err)
	}

	mask, err = store.GetMask(ctx, "client-1", "billing")
	if err != nil {
		t.Fatalf("get mask: %v", err)
	}
	if mask != core.PermissionDelete {
		t.Fatalf("expected grant to replace mask, got %v", mask)
	}

	allowed, err := store.HasAccess(ctx, "client-1", "billing", core.PermissionRead)
	if err != nil {
		t.Fatalf("has access: %v", err)
	}
	if allowed {
		t.Fatalf("expected read access to be gone after replacement")
	}

	if err := store.Revoke(ctx, "client-1", "billing"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	mask, err = store.GetMask(ctx, "client-1", "billing")
	if err != nil {
		t.Fatalf("get mask after revoke: %v", err)
	}
	if mask != 0 {
		t.Fatalf("expected zero mask after revoke, got %v", mask)
	}
}

func TestClientStore_RegistryLifecycle(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.ClientStore()

	created, err := store.Create(ctx, core.Client{Name: "reporting", Description: "reporting worker"}, "hash-1")
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned client id")
	}

	if _, err := store.Create(ctx, core.Client{Name: "reporting"}, "hash-2"); err == nil {
		t.Fatalf("expected duplicate name to fail")
	} else if !core.HasTextCode(err, core.VaultErrorConflict) {
		t.Fatalf("expected conflict text code, got %v", err)
	}

	hash, err := store.GetSecretHash(ctx, created.ID)
	if err != nil {
		t.Fatalf("get secret hash: %v", err)
	}
	if hash != "hash-1" {
		t.Fatalf("unexpected secret hash: %q", hash)
	}

	if err := store.ReplaceSecretHash(ctx, created.ID, "hash-3"); err != nil {
		t.Fatalf("replace secret hash: %v", err)
	}
	hash, err = store.GetSecretHash(ctx, created.ID)
	if err != nil {
		t.Fatalf("get secret hash after rotation: %v", err)
	}
	if hash != "hash-3" {
		t.Fatalf("expected rotated hash, got %q", hash)
	}

	newName := "reporting-v2"
	updated, err := store.Update(ctx, created.ID, core.UpdateClientInput{Name: &newName})
	if err != nil {
		t.Fatalf("update client: %v", err)
	}
	if updated.Name != "reporting-v2" {
		t.Fatalf("unexpected name after update: %q", updated.Name)
	}

	clients, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(clients) != 1 {
		t.Fatalf("expected one client, got %d", len(clients))
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}
	if _, err := store.Get(ctx, created.ID); err == nil {
		t.Fatalf("expected get after delete to fail")
	}
}

func TestSessionStore_ConsumeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.SessionStore()

	session := core.SignInSession{
		State:     "state-1",
		Provider:  "google",
		ClientID:  "oauth-client",
		Scopes:    []string{"openid", "email"},
		Target:    "usr_1",
		Status:    core.StatusAwaitingCallback,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	consumed, err := store.Consume(ctx, "state-1")
	if err != nil {
		t.Fatalf("consume session: %v", err)
	}
	if consumed.Provider != "google" || consumed.Target != "usr_1" {
		t.Fatalf("unexpected session: %+v", consumed)
	}
	if len(consumed.Scopes) != 2 || consumed.Scopes[0] != "openid" {
		t.Fatalf("unexpected scopes: %v", consumed.Scopes)
	}

	if _, err := store.Consume(ctx, "state-1"); !errors.Is(err, core.ErrSessionNotFound) {
		t.Fatalf("expected replay to fail with session not found, got %v", err)
	}
}

func TestSessionStore_ExpiryAndPrune(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithSessionTTL(time.Minute))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.SessionStore()

	stale := core.SignInSession{
		State:     "state-old",
		Provider:  "google",
		ClientID:  "oauth-client",
		Status:    core.StatusAwaitingCallback,
		CreatedAt: time.Now().UTC().Add(-2 * time.Minute),
	}
	if err := store.Save(ctx, stale); err != nil {
		t.Fatalf("save stale session: %v", err)
	}

	if _, err := store.Consume(ctx, "state-old"); err == nil {
		t.Fatalf("expected expired consume to fail")
	} else if !core.HasTextCode(err, core.VaultErrorSessionExpired) {
		t.Fatalf("expected session expired text code, got %v", err)
	}

	if err := store.Save(ctx, stale); err != nil {
		t.Fatalf("re-save stale session: %v", err)
	}
	fresh := core.SignInSession{
		State:     "state-new",
		Provider:  "google",
		ClientID:  "oauth-client",
		Status:    core.StatusAwaitingCallback,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Save(ctx, fresh); err != nil {
		t.Fatalf("save fresh session: %v", err)
	}

	pruned, err := store.PruneExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("prune expired: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected one pruned session, got %d", pruned)
	}
	if _, err := store.Consume(ctx, "state-new"); err != nil {
		t.Fatalf("expected fresh session to survive prune: %v", err)
	}
}

func TestCredentialStore_EncryptsPayloadAtRest(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	cipher, err := security.NewEnvelopeCipherFromString("vault-at-rest-key")
	if err != nil {
		t.Fatalf("new envelope cipher: %v", err)
	}
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithSecretCipher(cipher))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.CredentialStore()

	token := core.CredentialToken{
		Provider:     "google",
		TokenType:    "Bearer",
		AccessToken:  "at-original",
		RefreshToken: "rt-original",
		Scopes:       []string{"openid", "email"},
		ExpiresAt:    time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}
	if err := store.Put(ctx, "google", "usr_1", token); err != nil {
		t.Fatalf("put credential: %v", err)
	}

	fetched, err := store.Get(ctx, "google", "usr_1")
	if err != nil {
		t.Fatalf("get credential: %v", err)
	}
	if fetched.AccessToken != "at-original" || fetched.RefreshToken != "rt-original" {
		t.Fatalf("unexpected credential round trip: %+v", fetched)
	}
	if !fetched.ExpiresAt.Equal(token.ExpiresAt) {
		t.Fatalf("expected expiry to survive round trip, got %v", fetched.ExpiresAt)
	}

	var rawPayload []byte
	if err := client.DB().NewRaw(
		"SELECT encrypted_payload FROM vault_credentials WHERE provider = ? AND subject = ?",
		"google", "usr_1",
	).Scan(ctx, &rawPayload); err != nil {
		t.Fatalf("read raw payload: %v", err)
	}
	if strings.Contains(string(rawPayload), "at-original") {
		t.Fatalf("expected stored payload to be encrypted")
	}

	token.AccessToken = "at-refreshed"
	if err := store.Put(ctx, "google", "usr_1", token); err != nil {
		t.Fatalf("overwrite credential: %v", err)
	}
	fetched, err = store.Get(ctx, "google", "usr_1")
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if fetched.AccessToken != "at-refreshed" {
		t.Fatalf("expected last write to win, got %q", fetched.AccessToken)
	}

	if err := store.Delete(ctx, "google", "usr_1"); err != nil {
		t.Fatalf("delete credential: %v", err)
	}
	if _, err := store.Get(ctx, "google", "usr_1"); err == nil {
		t.Fatalf("expected get after delete to fail")
	}
}

func TestRepositoryFactory_RejectsUnsupportedClients(t *testing.T) {
	factory := sqlstore.NewRepositoryFactory()
	if _, err := factory.BuildStores(nil); err == nil {
		t.Fatalf("expected nil client to fail")
	}
	if _, err := factory.BuildStores(42); err == nil {
		t.Fatalf("expected unsupported client type to fail")
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:vault-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.OpenSQLite(sqlstore.ConnectConfig{
		Server:         dsn,
		PingTimeout:    time.Second,
		OtelIdentifier: "go-vault-tests",
	})
	if err != nil {
		t.Fatalf("open sqlite client: %v", err)
	}

	ctx := context.Background()
	_, err = vaultmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != vaultmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, vaultmigrations.WithValidationTargets(vaultmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
