package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-vault/core"
	"github.com/uptrace/bun"
)

// SecretStore persists vault secrets keyed by (label, key). The table
// carries a unique index on that pair; Set resolves create-vs-update
// inside a transaction so concurrent writers cannot double-insert.
type SecretStore struct {
	db   *bun.DB
	repo repository.Repository[*secretRecord]
}

func (s *SecretStore) Get(ctx context.Context, label, key string) (core.Secret, error) {
	if s == nil || s.repo == nil {
		return core.Secret{}, fmt.Errorf("sqlstore: secret store is not configured")
	}
	label, key = strings.TrimSpace(label), strings.TrimSpace(key)
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("label", "=", label),
		repository.SelectBy("key", "=", key),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Secret{}, err
	}
	if len(records) == 0 {
		return core.Secret{}, core.NewNotFoundError(
			fmt.Sprintf("secret not found: %s/%s", label, key))
	}
	return records[0].toDomain(), nil
}

func (s *SecretStore) Has(ctx context.Context, label, key string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: secret store is not configured")
	}
	return s.db.NewSelect().
		Model((*secretRecord)(nil)).
		Where("?TableAlias.label = ?", strings.TrimSpace(label)).
		Where("?TableAlias.key = ?", strings.TrimSpace(key)).
		Exists(ctx)
}

func (s *SecretStore) Set(ctx context.Context, label, key, value string) (core.SetOutcome, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return "", fmt.Errorf("sqlstore: secret store is not configured")
	}
	label, key = strings.TrimSpace(label), strings.TrimSpace(key)
	if label == "" || key == "" {
		return "", fmt.Errorf("sqlstore: secret label and key are required")
	}
	now := time.Now().UTC()

	var outcome core.SetOutcome
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		updated, updateErr := tx.NewUpdate().
			Model((*secretRecord)(nil)).
			Set("value = ?", value).
			Set("updated_at = ?", now).
			Where("label = ?", label).
			Where("key = ?", key).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}
		affected, affectedErr := updated.RowsAffected()
		if affectedErr != nil {
			return affectedErr
		}
		if affected > 0 {
			outcome = core.SetOutcomeUpdated
			return nil
		}

		record := newSecretRecord(label, key, value, now)
		if _, createErr := s.repo.CreateTx(ctx, tx, record); createErr != nil {
			return createErr
		}
		outcome = core.SetOutcomeCreated
		return nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *SecretStore) Delete(ctx context.Context, label, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: secret store is not configured")
	}
	label, key = strings.TrimSpace(label), strings.TrimSpace(key)
	deleted, err := s.db.NewDelete().
		Model((*secretRecord)(nil)).
		Where("label = ?", label).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := deleted.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.NewNotFoundError(fmt.Sprintf("secret not found: %s/%s", label, key))
	}
	return nil
}

func (s *SecretStore) ListKeys(ctx context.Context, label string) ([]string, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: secret store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("label", "=", strings.TrimSpace(label)),
		repository.OrderBy("key ASC"),
	)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(records))
	for _, record := range records {
		keys = append(keys, record.Key)
	}
	return keys, nil
}
