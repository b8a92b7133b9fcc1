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

// CredentialStore persists provider tokens keyed by (provider, subject).
// Payloads pass through the configured codec and, when a cipher is wired,
// are encrypted before they reach disk. Writes are last-write-wins.
type CredentialStore struct {
	db     *bun.DB
	repo   repository.Repository[*credentialRecord]
	codec  core.CredentialCodec
	cipher core.SecretCipher
}

type cipherIdentity interface {
	KeyID() string
	Version() int
}

func (s *CredentialStore) Put(ctx context.Context, provider, subject string, token core.CredentialToken) error {
	if s == nil || s.repo == nil || s.db == nil || s.codec == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	provider, subject = normalizeCredentialKey(provider, subject)
	if provider == "" || subject == "" {
		return fmt.Errorf("sqlstore: credential provider and subject are required")
	}

	payload, err := s.codec.Encode(token)
	if err != nil {
		return err
	}
	keyID, keyVersion := "", 0
	if s.cipher != nil {
		encrypted, encryptErr := s.cipher.Encrypt(ctx, payload)
		if encryptErr != nil {
			return encryptErr
		}
		payload = encrypted
		if identity, ok := s.cipher.(cipherIdentity); ok {
			keyID = identity.KeyID()
			keyVersion = identity.Version()
		}
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		updated, updateErr := tx.NewUpdate().
			Model((*credentialRecord)(nil)).
			Set("encrypted_payload = ?", payload).
			Set("payload_format = ?", s.codec.Format()).
			Set("payload_version = ?", s.codec.Version()).
			Set("encryption_key_id = ?", keyID).
			Set("encryption_version = ?", keyVersion).
			Set("updated_at = ?", now).
			Where("provider = ?", provider).
			Where("subject = ?", subject).
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

		record := &credentialRecord{
			Provider:          provider,
			Subject:           subject,
			EncryptedPayload:  payload,
			PayloadFormat:     s.codec.Format(),
			PayloadVersion:    s.codec.Version(),
			EncryptionKeyID:   keyID,
			EncryptionVersion: keyVersion,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		_, createErr := s.repo.CreateTx(ctx, tx, record)
		return createErr
	})
}

func (s *CredentialStore) Get(ctx context.Context, provider, subject string) (core.CredentialToken, error) {
	if s == nil || s.repo == nil || s.codec == nil {
		return core.CredentialToken{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	provider, subject = normalizeCredentialKey(provider, subject)
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("provider", "=", provider),
		repository.SelectBy("subject", "=", subject),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.CredentialToken{}, err
	}
	if len(records) == 0 {
		return core.CredentialToken{}, core.NewNotFoundError(
			fmt.Sprintf("credential not found: %s/%s", provider, subject))
	}

	payload := records[0].EncryptedPayload
	if s.cipher != nil {
		decrypted, decryptErr := s.cipher.Decrypt(ctx, payload)
		if decryptErr != nil {
			return core.CredentialToken{}, decryptErr
		}
		payload = decrypted
	}
	return s.codec.Decode(payload)
}

func (s *CredentialStore) Delete(ctx context.Context, provider, subject string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	provider, subject = normalizeCredentialKey(provider, subject)
	_, err := s.db.NewDelete().
		Model((*credentialRecord)(nil)).
		Where("provider = ?", provider).
		Where("subject = ?", subject).
		Exec(ctx)
	return err
}

func normalizeCredentialKey(provider, subject string) (string, string) {
	return strings.TrimSpace(strings.ToLower(provider)), strings.TrimSpace(subject)
}
