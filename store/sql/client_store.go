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

// ClientStore persists the vault's private client registry. Only secret
// hashes hit disk; plaintext secrets never reach this layer.
type ClientStore struct {
	db   *bun.DB
	repo repository.Repository[*clientRecord]
}

func (s *ClientStore) Create(ctx context.Context, client core.Client, secretHash string) (core.Client, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.Client{}, fmt.Errorf("sqlstore: client store is not configured")
	}
	name := strings.TrimSpace(client.Name)
	if name == "" {
		return core.Client{}, fmt.Errorf("sqlstore: client name is required")
	}
	if strings.TrimSpace(secretHash) == "" {
		return core.Client{}, fmt.Errorf("sqlstore: client secret hash is required")
	}
	client.Name = name

	exists, err := s.db.NewSelect().
		Model((*clientRecord)(nil)).
		Where("?TableAlias.name = ?", name).
		Exists(ctx)
	if err != nil {
		return core.Client{}, err
	}
	if exists {
		return core.Client{}, core.NewConflictError("client name already exists: " + name)
	}

	record := newClientRecord(client, secretHash, time.Now().UTC())
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Client{}, err
	}
	return created.toDomain(), nil
}

func (s *ClientStore) Get(ctx context.Context, id string) (core.Client, error) {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return core.Client{}, err
	}
	return record.toDomain(), nil
}

func (s *ClientStore) List(ctx context.Context) ([]core.Client, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: client store is not configured")
	}
	records, _, err := s.repo.List(ctx, repository.OrderBy("name ASC"))
	if err != nil {
		return nil, err
	}
	out := make([]core.Client, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *ClientStore) Update(ctx context.Context, id string, in core.UpdateClientInput) (core.Client, error) {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return core.Client{}, err
	}
	if in.Name != nil {
		record.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		record.Description = strings.TrimSpace(*in.Description)
	}
	record.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(record.ID))
	if err != nil {
		return core.Client{}, err
	}
	return updated.toDomain(), nil
}

func (s *ClientStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: client store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	deleted, err := s.db.NewDelete().
		Model((*clientRecord)(nil)).
		Where("id = ?", trimmedID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := deleted.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.NewNotFoundError("client not found: " + trimmedID)
	}
	return nil
}

func (s *ClientStore) GetSecretHash(ctx context.Context, id string) (string, error) {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return "", err
	}
	return record.SecretHash, nil
}

func (s *ClientStore) ReplaceSecretHash(ctx context.Context, id, secretHash string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: client store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	if strings.TrimSpace(secretHash) == "" {
		return fmt.Errorf("sqlstore: client secret hash is required")
	}
	updated, err := s.db.NewUpdate().
		Model((*clientRecord)(nil)).
		Set("secret_hash = ?", secretHash).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", trimmedID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := updated.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.NewNotFoundError("client not found: " + trimmedID)
	}
	return nil
}

func (s *ClientStore) getRecord(ctx context.Context, id string) (*clientRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: client store is not configured")
	}
	trimmedID := strings.TrimSpace(id)
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("id", "=", trimmedID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, core.NewNotFoundError("client not found: " + trimmedID)
	}
	return records[0], nil
}
