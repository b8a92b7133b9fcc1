package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SetSecretMessage]          = (*SetSecretCommand)(nil)
	_ gocmd.Commander[DeleteSecretMessage]       = (*DeleteSecretCommand)(nil)
	_ gocmd.Commander[GrantAccessMessage]        = (*GrantAccessCommand)(nil)
	_ gocmd.Commander[RevokeAccessMessage]       = (*RevokeAccessCommand)(nil)
	_ gocmd.Commander[CreateClientMessage]       = (*CreateClientCommand)(nil)
	_ gocmd.Commander[RotateClientSecretMessage] = (*RotateClientSecretCommand)(nil)
	_ gocmd.Commander[UpdateClientMessage]       = (*UpdateClientCommand)(nil)
	_ gocmd.Commander[DeleteClientMessage]       = (*DeleteClientCommand)(nil)
	_ gocmd.Commander[BeginSignInMessage]        = (*BeginSignInCommand)(nil)
	_ gocmd.Commander[CompleteSignInMessage]     = (*CompleteSignInCommand)(nil)
	_ gocmd.Commander[RefreshTokenMessage]       = (*RefreshTokenCommand)(nil)
	_ gocmd.Commander[PruneSessionsMessage]      = (*PruneSessionsCommand)(nil)
)
