package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-vault/core"
)

const (
	TypeSetSecret          = "vault.command.secret.set"
	TypeDeleteSecret       = "vault.command.secret.delete"
	TypeGrantAccess        = "vault.command.access.grant"
	TypeRevokeAccess       = "vault.command.access.revoke"
	TypeCreateClient       = "vault.command.client.create"
	TypeRotateClientSecret = "vault.command.client.rotate_secret"
	TypeUpdateClient       = "vault.command.client.update"
	TypeDeleteClient       = "vault.command.client.delete"
	TypeBeginSignIn        = "vault.command.signin.begin"
	TypeCompleteSignIn     = "vault.command.signin.complete"
	TypeRefreshToken       = "vault.command.token.refresh"
	TypePruneSessions      = "vault.command.session.prune"
)

type SetSecretMessage struct {
	ClientID string
	Label    string
	Key      string
	Value    string
}

func (SetSecretMessage) Type() string { return TypeSetSecret }

func (m SetSecretMessage) Validate() error {
	if err := validateSecretRef(m.ClientID, m.Label, m.Key); err != nil {
		return err
	}
	return nil
}

type DeleteSecretMessage struct {
	ClientID string
	Label    string
	Key      string
}

func (DeleteSecretMessage) Type() string { return TypeDeleteSecret }

func (m DeleteSecretMessage) Validate() error {
	return validateSecretRef(m.ClientID, m.Label, m.Key)
}

type GrantAccessMessage struct {
	ClientID string
	Label    string
	Mask     core.Permission
}

func (GrantAccessMessage) Type() string { return TypeGrantAccess }

func (m GrantAccessMessage) Validate() error {
	if err := validateGrantRef(m.ClientID, m.Label); err != nil {
		return err
	}
	if m.Mask == 0 {
		return fmt.Errorf("command: permission mask is required")
	}
	if m.Mask&^core.PermissionAll != 0 {
		return fmt.Errorf("command: permission mask has unknown bits")
	}
	return nil
}

type RevokeAccessMessage struct {
	ClientID string
	Label    string
}

func (RevokeAccessMessage) Type() string { return TypeRevokeAccess }

func (m RevokeAccessMessage) Validate() error {
	return validateGrantRef(m.ClientID, m.Label)
}

type CreateClientMessage struct {
	Input core.CreateClientInput
}

func (CreateClientMessage) Type() string { return TypeCreateClient }

func (m CreateClientMessage) Validate() error {
	if strings.TrimSpace(m.Input.Name) == "" {
		return fmt.Errorf("command: client name is required")
	}
	return nil
}

type RotateClientSecretMessage struct {
	ClientID string
}

func (RotateClientSecretMessage) Type() string { return TypeRotateClientSecret }

func (m RotateClientSecretMessage) Validate() error {
	if strings.TrimSpace(m.ClientID) == "" {
		return fmt.Errorf("command: client id is required")
	}
	return nil
}

type UpdateClientMessage struct {
	ClientID string
	Input    core.UpdateClientInput
}

func (UpdateClientMessage) Type() string { return TypeUpdateClient }

func (m UpdateClientMessage) Validate() error {
	if strings.TrimSpace(m.ClientID) == "" {
		return fmt.Errorf("command: client id is required")
	}
	if m.Input.Name == nil && m.Input.Description == nil {
		return fmt.Errorf("command: client update requires at least one field")
	}
	return nil
}

type DeleteClientMessage struct {
	ClientID string
}

func (DeleteClientMessage) Type() string { return TypeDeleteClient }

func (m DeleteClientMessage) Validate() error {
	if strings.TrimSpace(m.ClientID) == "" {
		return fmt.Errorf("command: client id is required")
	}
	return nil
}

type BeginSignInMessage struct {
	Request core.BeginSignInRequest
}

func (BeginSignInMessage) Type() string { return TypeBeginSignIn }

func (m BeginSignInMessage) Validate() error {
	if strings.TrimSpace(m.Request.Provider) == "" {
		return fmt.Errorf("command: provider is required")
	}
	if strings.TrimSpace(m.Request.ClientID) == "" {
		return fmt.Errorf("command: client id is required")
	}
	return nil
}

type CompleteSignInMessage struct {
	Request core.CompleteSignInRequest
}

func (CompleteSignInMessage) Type() string { return TypeCompleteSignIn }

func (m CompleteSignInMessage) Validate() error {
	if strings.TrimSpace(m.Request.State) == "" {
		return fmt.Errorf("command: callback state is required")
	}
	return nil
}

type RefreshTokenMessage struct {
	Provider    string
	Subject     string
	Credentials core.RefreshCredentials
	Force       bool
}

func (RefreshTokenMessage) Type() string { return TypeRefreshToken }

func (m RefreshTokenMessage) Validate() error {
	if strings.TrimSpace(m.Provider) == "" {
		return fmt.Errorf("command: provider is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("command: subject is required")
	}
	return m.Credentials.Validate()
}

type PruneSessionsMessage struct{}

func (PruneSessionsMessage) Type() string { return TypePruneSessions }

func (PruneSessionsMessage) Validate() error { return nil }

func validateSecretRef(clientID, label, key string) error {
	if strings.TrimSpace(clientID) == "" {
		return fmt.Errorf("command: client id is required")
	}
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("command: vault label is required")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("command: secret key is required")
	}
	return nil
}

func validateGrantRef(clientID, label string) error {
	if strings.TrimSpace(clientID) == "" {
		return fmt.Errorf("command: client id is required")
	}
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("command: vault label is required")
	}
	return nil
}
