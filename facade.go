package vault

import (
	"fmt"

	vaultcommand "github.com/goliatone/go-vault/command"
)

// Commands bundles the mutation handlers exposed to command buses. Read
// operations stay on the service itself.
type Commands struct {
	SetSecret          *vaultcommand.SetSecretCommand
	DeleteSecret       *vaultcommand.DeleteSecretCommand
	GrantAccess        *vaultcommand.GrantAccessCommand
	RevokeAccess       *vaultcommand.RevokeAccessCommand
	CreateClient       *vaultcommand.CreateClientCommand
	RotateClientSecret *vaultcommand.RotateClientSecretCommand
	UpdateClient       *vaultcommand.UpdateClientCommand
	DeleteClient       *vaultcommand.DeleteClientCommand
	BeginSignIn        *vaultcommand.BeginSignInCommand
	CompleteSignIn     *vaultcommand.CompleteSignInCommand
	RefreshToken       *vaultcommand.RefreshTokenCommand
	PruneSessions      *vaultcommand.PruneSessionsCommand
}

type Facade struct {
	service  vaultcommand.MutatingService
	commands Commands
}

func NewFacade(service vaultcommand.MutatingService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("vault: mutating service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		SetSecret:          vaultcommand.NewSetSecretCommand(service),
		DeleteSecret:       vaultcommand.NewDeleteSecretCommand(service),
		GrantAccess:        vaultcommand.NewGrantAccessCommand(service),
		RevokeAccess:       vaultcommand.NewRevokeAccessCommand(service),
		CreateClient:       vaultcommand.NewCreateClientCommand(service),
		RotateClientSecret: vaultcommand.NewRotateClientSecretCommand(service),
		UpdateClient:       vaultcommand.NewUpdateClientCommand(service),
		DeleteClient:       vaultcommand.NewDeleteClientCommand(service),
		BeginSignIn:        vaultcommand.NewBeginSignInCommand(service),
		CompleteSignIn:     vaultcommand.NewCompleteSignInCommand(service),
		RefreshToken:       vaultcommand.NewRefreshTokenCommand(service),
		PruneSessions:      vaultcommand.NewPruneSessionsCommand(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Service() vaultcommand.MutatingService {
	if f == nil {
		return nil
	}
	return f.service
}
