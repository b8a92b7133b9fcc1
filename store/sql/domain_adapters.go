package sqlstore

import (
	"time"

	"github.com/goliatone/go-vault/core"
	"github.com/google/uuid"
)

func newSecretRecord(label, key, value string, now time.Time) *secretRecord {
	return &secretRecord{
		ID:        uuid.NewString(),
		Label:     label,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *secretRecord) toDomain() core.Secret {
	if r == nil {
		return core.Secret{}
	}
	return core.Secret{
		ID:        r.ID,
		Label:     r.Label,
		Key:       r.Key,
		Value:     r.Value,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newAccessGrantRecord(clientID, label string, mask core.Permission, now time.Time) *accessGrantRecord {
	return &accessGrantRecord{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Label:     label,
		Mask:      int(mask),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (r *accessGrantRecord) toDomain() core.AccessGrant {
	if r == nil {
		return core.AccessGrant{}
	}
	return core.AccessGrant{
		ID:        r.ID,
		ClientID:  r.ClientID,
		Label:     r.Label,
		Mask:      core.Permission(r.Mask),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newClientRecord(client core.Client, secretHash string, now time.Time) *clientRecord {
	createdAt := client.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return &clientRecord{
		ID:          client.ID,
		Name:        client.Name,
		Description: client.Description,
		SecretHash:  secretHash,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
}

func (r *clientRecord) toDomain() core.Client {
	if r == nil {
		return core.Client{}
	}
	return core.Client{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

func newSigninSessionRecord(session core.SignInSession) *signinSessionRecord {
	return &signinSessionRecord{
		State:     session.State,
		Provider:  session.Provider,
		ClientID:  session.ClientID,
		Scopes:    append([]string(nil), session.Scopes...),
		Target:    session.Target,
		Status:    string(session.Status),
		CreatedAt: session.CreatedAt,
	}
}

func (r *signinSessionRecord) toDomain() core.SignInSession {
	if r == nil {
		return core.SignInSession{}
	}
	return core.SignInSession{
		State:     r.State,
		Provider:  r.Provider,
		ClientID:  r.ClientID,
		Scopes:    append([]string(nil), r.Scopes...),
		Target:    r.Target,
		Status:    core.SignInStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}
