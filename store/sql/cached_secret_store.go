package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-vault/core"
)

const secretCacheKeyPrefix = "go-vault::secret::v1"

// CachedSecretStore layers a read-through cache over a secret store. Reads
// go through GetOrFetch; every write or delete invalidates the cached entry
// before the base store result is returned to the caller.
type CachedSecretStore struct {
	base  core.SecretStore
	cache repositorycache.CacheService
}

func NewCachedSecretStore(base core.SecretStore, cacheService repositorycache.CacheService) (*CachedSecretStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base secret store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: secret cache service is required")
	}
	return &CachedSecretStore{base: base, cache: cacheService}, nil
}

// SecretCacheKey returns the deterministic cache key contract for secret
// reads: go-vault::secret::v1::<label>::<key> with each segment URL-path
// escaped.
func SecretCacheKey(label, key string) (string, error) {
	label, key = strings.TrimSpace(label), strings.TrimSpace(key)
	if label == "" || key == "" {
		return "", fmt.Errorf("sqlstore: secret label and key are required")
	}
	segments := []string{url.PathEscape(label), url.PathEscape(key)}
	return strings.Join(append([]string{secretCacheKeyPrefix}, segments...), "::"), nil
}

func (s *CachedSecretStore) Get(ctx context.Context, label, key string) (core.Secret, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Secret{}, fmt.Errorf("sqlstore: cached secret store is not configured")
	}
	cacheKey, err := SecretCacheKey(label, key)
	if err != nil {
		return core.Secret{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Secret, error) {
		return s.base.Get(ctx, label, key)
	})
}

func (s *CachedSecretStore) Has(ctx context.Context, label, key string) (bool, error) {
	if s == nil || s.base == nil {
		return false, fmt.Errorf("sqlstore: cached secret store is not configured")
	}
	return s.base.Has(ctx, label, key)
}

func (s *CachedSecretStore) Set(ctx context.Context, label, key, value string) (core.SetOutcome, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached secret store is not configured")
	}
	outcome, err := s.base.Set(ctx, label, key, value)
	if err != nil {
		return "", err
	}
	if err := s.invalidate(ctx, label, key); err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *CachedSecretStore) Delete(ctx context.Context, label, key string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached secret store is not configured")
	}
	if err := s.base.Delete(ctx, label, key); err != nil {
		return err
	}
	return s.invalidate(ctx, label, key)
}

func (s *CachedSecretStore) ListKeys(ctx context.Context, label string) ([]string, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached secret store is not configured")
	}
	return s.base.ListKeys(ctx, label)
}

func (s *CachedSecretStore) invalidate(ctx context.Context, label, key string) error {
	cacheKey, err := SecretCacheKey(label, key)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}
