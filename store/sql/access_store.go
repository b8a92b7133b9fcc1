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

// AccessStore persists per-(client, label) permission masks. Grant writes
// the mask outright; it never merges with an existing row.
type AccessStore struct {
	db   *bun.DB
	repo repository.Repository[*accessGrantRecord]
}

func (s *AccessStore) Grant(ctx context.Context, clientID, label string, mask core.Permission) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: access store is not configured")
	}
	clientID, label = strings.TrimSpace(clientID), strings.TrimSpace(label)
	if clientID == "" || label == "" {
		return fmt.Errorf("sqlstore: client id and label are required")
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		updated, updateErr := tx.NewUpdate().
			Model((*accessGrantRecord)(nil)).
			Set("mask = ?", int(mask)).
			Set("updated_at = ?", now).
			Where("client_id = ?", clientID).
			Where("label = ?", label).
			Exec(ctx)
		if updateErr != nil {
			return updateErr
		}
		affected, affectedErr := updated.RowsAffected()
		if affectedErr != nil {
			return affectedErr
		}
		if affected > 0 {
			return nil
		}

		record := newAccessGrantRecord(clientID, label, mask, now)
		_, createErr := s.repo.CreateTx(ctx, tx, record)
		return createErr
	})
}

func (s *AccessStore) Revoke(ctx context.Context, clientID, label string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: access store is not configured")
	}
	_, err := s.db.NewDelete().
		Model((*accessGrantRecord)(nil)).
		Where("client_id = ?", strings.TrimSpace(clientID)).
		Where("label = ?", strings.TrimSpace(label)).
		Exec(ctx)
	return err
}

func (s *AccessStore) HasAccess(ctx context.Context, clientID, label string, required core.Permission) (bool, error) {
	mask, err := s.GetMask(ctx, clientID, label)
	if err != nil {
		return false, err
	}
	return mask.Has(required), nil
}

// GetMask returns the stored mask, or zero when no grant row exists.
// Absence is not an error: a missing grant simply carries no permissions.
func (s *AccessStore) GetMask(ctx context.Context, clientID, label string) (core.Permission, error) {
	if s == nil || s.repo == nil {
		return 0, fmt.Errorf("sqlstore: access store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("client_id", "=", strings.TrimSpace(clientID)),
		repository.SelectBy("label", "=", strings.TrimSpace(label)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return core.Permission(records[0].Mask), nil
}
