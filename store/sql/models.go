package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type secretRecord struct {
	bun.BaseModel `bun:"table:vault_secrets,alias:vs"`

	ID        string    `bun:"id,pk"`
	Label     string    `bun:"label,notnull"`
	Key       string    `bun:"key,notnull"`
	Value     string    `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type accessGrantRecord struct {
	bun.BaseModel `bun:"table:vault_access_grants,alias:vag"`

	ID        string    `bun:"id,pk"`
	ClientID  string    `bun:"client_id,notnull"`
	Label     string    `bun:"label,notnull"`
	Mask      int       `bun:"mask,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type clientRecord struct {
	bun.BaseModel `bun:"table:vault_clients,alias:vc"`

	ID          string    `bun:"id,pk"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description"`
	SecretHash  string    `bun:"secret_hash,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type signinSessionRecord struct {
	bun.BaseModel `bun:"table:vault_signin_sessions,alias:vss"`

	State     string    `bun:"state,pk"`
	Provider  string    `bun:"provider,notnull"`
	ClientID  string    `bun:"client_id,notnull"`
	Scopes    []string  `bun:"scopes,type:jsonb,notnull"`
	Target    string    `bun:"target"`
	Status    string    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type credentialRecord struct {
	bun.BaseModel `bun:"table:vault_credentials,alias:vcr"`

	ID                string    `bun:"id,pk"`
	Provider          string    `bun:"provider,notnull"`
	Subject           string    `bun:"subject,notnull"`
	EncryptedPayload  []byte    `bun:"encrypted_payload,notnull"`
	PayloadFormat     string    `bun:"payload_format,notnull"`
	PayloadVersion    int       `bun:"payload_version,notnull"`
	EncryptionKeyID   string    `bun:"encryption_key_id"`
	EncryptionVersion int       `bun:"encryption_version"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
