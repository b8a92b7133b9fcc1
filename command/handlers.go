package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vault/core"
)

// MutatingService is the slice of the vault service the command handlers
// drive. Read-side operations stay on the service directly.
type MutatingService interface {
	SetSecret(ctx context.Context, clientID, label, key, value string) (core.SetOutcome, error)
	DeleteSecret(ctx context.Context, clientID, label, key string) error
	GrantAccess(ctx context.Context, clientID, label string, mask core.Permission) error
	RevokeAccess(ctx context.Context, clientID, label string) error
	CreateClient(ctx context.Context, in core.CreateClientInput) (core.Client, string, error)
	RotateClientSecret(ctx context.Context, clientID string) (string, error)
	UpdateClient(ctx context.Context, clientID string, in core.UpdateClientInput) (core.Client, error)
	DeleteClient(ctx context.Context, clientID string) error
	BeginSignIn(ctx context.Context, req core.BeginSignInRequest) (core.BeginSignInResponse, error)
	CompleteSignIn(ctx context.Context, req core.CompleteSignInRequest) (core.SignInCompletion, error)
	EnsureFreshToken(ctx context.Context, provider, subject string, creds core.RefreshCredentials, force bool) (core.CredentialToken, error)
	PruneSessions(ctx context.Context) (int, error)
}

// CreatedClient pairs a registered client with its one-time plaintext
// secret. The secret is never retrievable again after this result.
type CreatedClient struct {
	Client core.Client
	Secret string
}

type SetSecretCommand struct {
	service MutatingService
}

func NewSetSecretCommand(service MutatingService) *SetSecretCommand {
	return &SetSecretCommand{service: service}
}

func (c *SetSecretCommand) Execute(ctx context.Context, msg SetSecretMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: secret service is required")
	}
	outcome, err := c.service.SetSecret(ctx, msg.ClientID, msg.Label, msg.Key, msg.Value)
	if err != nil {
		return err
	}
	storeResult(ctx, outcome)
	return nil
}

type DeleteSecretCommand struct {
	service MutatingService
}

func NewDeleteSecretCommand(service MutatingService) *DeleteSecretCommand {
	return &DeleteSecretCommand{service: service}
}

func (c *DeleteSecretCommand) Execute(ctx context.Context, msg DeleteSecretMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: secret service is required")
	}
	return c.service.DeleteSecret(ctx, msg.ClientID, msg.Label, msg.Key)
}

type GrantAccessCommand struct {
	service MutatingService
}

func NewGrantAccessCommand(service MutatingService) *GrantAccessCommand {
	return &GrantAccessCommand{service: service}
}

func (c *GrantAccessCommand) Execute(ctx context.Context, msg GrantAccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: access service is required")
	}
	return c.service.GrantAccess(ctx, msg.ClientID, msg.Label, msg.Mask)
}

type RevokeAccessCommand struct {
	service MutatingService
}

func NewRevokeAccessCommand(service MutatingService) *RevokeAccessCommand {
	return &RevokeAccessCommand{service: service}
}

func (c *RevokeAccessCommand) Execute(ctx context.Context, msg RevokeAccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: access service is required")
	}
	return c.service.RevokeAccess(ctx, msg.ClientID, msg.Label)
}

type CreateClientCommand struct {
	service MutatingService
}

func NewCreateClientCommand(service MutatingService) *CreateClientCommand {
	return &CreateClientCommand{service: service}
}

func (c *CreateClientCommand) Execute(ctx context.Context, msg CreateClientMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: client registry service is required")
	}
	client, secret, err := c.service.CreateClient(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, CreatedClient{Client: client, Secret: secret})
	return nil
}

type RotateClientSecretCommand struct {
	service MutatingService
}

func NewRotateClientSecretCommand(service MutatingService) *RotateClientSecretCommand {
	return &RotateClientSecretCommand{service: service}
}

func (c *RotateClientSecretCommand) Execute(ctx context.Context, msg RotateClientSecretMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: client registry service is required")
	}
	secret, err := c.service.RotateClientSecret(ctx, msg.ClientID)
	if err != nil {
		return err
	}
	storeResult(ctx, secret)
	return nil
}

type UpdateClientCommand struct {
	service MutatingService
}

func NewUpdateClientCommand(service MutatingService) *UpdateClientCommand {
	return &UpdateClientCommand{service: service}
}

func (c *UpdateClientCommand) Execute(ctx context.Context, msg UpdateClientMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: client registry service is required")
	}
	client, err := c.service.UpdateClient(ctx, msg.ClientID, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, client)
	return nil
}

type DeleteClientCommand struct {
	service MutatingService
}

func NewDeleteClientCommand(service MutatingService) *DeleteClientCommand {
	return &DeleteClientCommand{service: service}
}

func (c *DeleteClientCommand) Execute(ctx context.Context, msg DeleteClientMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: client registry service is required")
	}
	return c.service.DeleteClient(ctx, msg.ClientID)
}

type BeginSignInCommand struct {
	service MutatingService
}

func NewBeginSignInCommand(service MutatingService) *BeginSignInCommand {
	return &BeginSignInCommand{service: service}
}

func (c *BeginSignInCommand) Execute(ctx context.Context, msg BeginSignInMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: federation service is required")
	}
	out, err := c.service.BeginSignIn(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteSignInCommand struct {
	service MutatingService
}

func NewCompleteSignInCommand(service MutatingService) *CompleteSignInCommand {
	return &CompleteSignInCommand{service: service}
}

func (c *CompleteSignInCommand) Execute(ctx context.Context, msg CompleteSignInMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: federation service is required")
	}
	out, err := c.service.CompleteSignIn(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshTokenCommand struct {
	service MutatingService
}

func NewRefreshTokenCommand(service MutatingService) *RefreshTokenCommand {
	return &RefreshTokenCommand{service: service}
}

func (c *RefreshTokenCommand) Execute(ctx context.Context, msg RefreshTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: federation service is required")
	}
	token, err := c.service.EnsureFreshToken(ctx, msg.Provider, msg.Subject, msg.Credentials, msg.Force)
	if err != nil {
		return err
	}
	storeResult(ctx, token)
	return nil
}

type PruneSessionsCommand struct {
	service MutatingService
}

func NewPruneSessionsCommand(service MutatingService) *PruneSessionsCommand {
	return &PruneSessionsCommand{service: service}
}

func (c *PruneSessionsCommand) Execute(ctx context.Context, msg PruneSessionsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: federation service is required")
	}
	pruned, err := c.service.PruneSessions(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, pruned)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
