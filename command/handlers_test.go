package command

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-vault/core"
)

type stubMutatingService struct {
	setSecretFn          func(ctx context.Context, clientID, label, key, value string) (core.SetOutcome, error)
	deleteSecretFn       func(ctx context.Context, clientID, label, key string) error
	grantAccessFn        func(ctx context.Context, clientID, label string, mask core.Permission) error
	revokeAccessFn       func(ctx context.Context, clientID, label string) error
	createClientFn       func(ctx context.Context, in core.CreateClientInput) (core.Client, string, error)
	rotateClientSecretFn func(ctx context.Context, clientID string) (string, error)
	updateClientFn       func(ctx context.Context, clientID string, in core.UpdateClientInput) (core.Client, error)
	deleteClientFn       func(ctx context.Context, clientID string) error
	beginSignInFn        func(ctx context.Context, req core.BeginSignInRequest) (core.BeginSignInResponse, error)
	completeSignInFn     func(ctx context.Context, req core.CompleteSignInRequest) (core.SignInCompletion, error)
	ensureFreshTokenFn   func(ctx context.Context, provider, subject string, creds core.RefreshCredentials, force bool) (core.CredentialToken, error)
	pruneSessionsFn      func(ctx context.Context) (int, error)
}

func (s stubMutatingService) SetSecret(ctx context.Context, clientID, label, key, value string) (core.SetOutcome, error) {
	return s.setSecretFn(ctx, clientID, label, key, value)
}

func (s stubMutatingService) DeleteSecret(ctx context.Context, clientID, label, key string) error {
	return s.deleteSecretFn(ctx, clientID, label, key)
}

func (s stubMutatingService) GrantAccess(ctx context.Context, clientID, label string, mask core.Permission) error {
	return s.grantAccessFn(ctx, clientID, label, mask)
}

func (s stubMutatingService) RevokeAccess(ctx context.Context, clientID, label string) error {
	return s.revokeAccessFn(ctx, clientID, label)
}

func (s stubMutatingService) CreateClient(ctx context.Context, in core.CreateClientInput) (core.Client, string, error) {
	return s.createClientFn(ctx, in)
}

func (s stubMutatingService) RotateClientSecret(ctx context.Context, clientID string) (string, error) {
	return s.rotateClientSecretFn(ctx, clientID)
}

func (s stubMutatingService) UpdateClient(ctx context.Context, clientID string, in core.UpdateClientInput) (core.Client, error) {
	return s.updateClientFn(ctx, clientID, in)
}

func (s stubMutatingService) DeleteClient(ctx context.Context, clientID string) error {
	return s.deleteClientFn(ctx, clientID)
}

func (s stubMutatingService) BeginSignIn(ctx context.Context, req core.BeginSignInRequest) (core.BeginSignInResponse, error) {
	return s.beginSignInFn(ctx, req)
}

func (s stubMutatingService) CompleteSignIn(ctx context.Context, req core.CompleteSignInRequest) (core.SignInCompletion, error) {
	return s.completeSignInFn(ctx, req)
}

func (s stubMutatingService) EnsureFreshToken(ctx context.Context, provider, subject string, creds core.RefreshCredentials, force bool) (core.CredentialToken, error) {
	return s.ensureFreshTokenFn(ctx, provider, subject, creds, force)
}

func (s stubMutatingService) PruneSessions(ctx context.Context) (int, error) {
	return s.pruneSessionsFn(ctx)
}

func TestSetSecretCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	svc := stubMutatingService{
		setSecretFn: func(_ context.Context, clientID, label, key, value string) (core.SetOutcome, error) {
			called = true
			if clientID != "client-1" || label != "billing" || key != "api-key" || value != "s3cr3t" {
				t.Fatalf("unexpected set payload: %q %q %q %q", clientID, label, key, value)
			}
			return core.SetOutcomeCreated, nil
		},
	}

	cmd := NewSetSecretCommand(svc)
	collector := gocmd.NewResult[core.SetOutcome]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, SetSecretMessage{
		ClientID: "client-1",
		Label:    "billing",
		Key:      "api-key",
		Value:    "s3cr3t",
	})
	if err != nil {
		t.Fatalf("execute set secret: %v", err)
	}
	if !called {
		t.Fatalf("expected set secret invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result != core.SetOutcomeCreated {
		t.Fatalf("unexpected outcome: %q", result)
	}
}

func TestCreateClientCommand_StoresPlaintextSecretOnce(t *testing.T) {
	svc := stubMutatingService{
		createClientFn: func(_ context.Context, in core.CreateClientInput) (core.Client, string, error) {
			if in.Name != "reporting" {
				t.Fatalf("unexpected client name: %q", in.Name)
			}
			return core.Client{ID: "cl_1", Name: in.Name}, "plain-secret", nil
		},
	}

	cmd := NewCreateClientCommand(svc)
	collector := gocmd.NewResult[CreatedClient]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, CreateClientMessage{Input: core.CreateClientInput{Name: "reporting"}}); err != nil {
		t.Fatalf("execute create client: %v", err)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.Client.ID != "cl_1" || result.Secret != "plain-secret" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestMutationCommands_DelegateToService(t *testing.T) {
	t.Run("grant access", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			grantAccessFn: func(_ context.Context, clientID, label string, mask core.Permission) error {
				called = true
				if clientID != "client-1" || label != "billing" || mask != core.PermissionRead {
					t.Fatalf("unexpected grant payload: %q %q %v", clientID, label, mask)
				}
				return nil
			},
		}
		cmd := NewGrantAccessCommand(svc)
		if err := cmd.Execute(context.Background(), GrantAccessMessage{
			ClientID: "client-1",
			Label:    "billing",
			Mask:     core.PermissionRead,
		}); err != nil {
			t.Fatalf("execute grant: %v", err)
		}
		if !called {
			t.Fatalf("expected grant invocation")
		}
	})

	t.Run("revoke access", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			revokeAccessFn: func(_ context.Context, clientID, label string) error {
				called = true
				return nil
			},
		}
		cmd := NewRevokeAccessCommand(svc)
		if err := cmd.Execute(context.Background(), RevokeAccessMessage{ClientID: "client-1", Label: "billing"}); err != nil {
			t.Fatalf("execute revoke: %v", err)
		}
		if !called {
			t.Fatalf("expected revoke invocation")
		}
	})

	t.Run("delete secret", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			deleteSecretFn: func(_ context.Context, clientID, label, key string) error {
				called = true
				return nil
			},
		}
		cmd := NewDeleteSecretCommand(svc)
		if err := cmd.Execute(context.Background(), DeleteSecretMessage{
			ClientID: "client-1",
			Label:    "billing",
			Key:      "api-key",
		}); err != nil {
			t.Fatalf("execute delete secret: %v", err)
		}
		if !called {
			t.Fatalf("expected delete invocation")
		}
	})

	t.Run("rotate client secret", func(t *testing.T) {
		svc := stubMutatingService{
			rotateClientSecretFn: func(_ context.Context, clientID string) (string, error) {
				if clientID != "cl_1" {
					t.Fatalf("unexpected client id: %q", clientID)
				}
				return "rotated-secret", nil
			},
		}
		cmd := NewRotateClientSecretCommand(svc)
		collector := gocmd.NewResult[string]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, RotateClientSecretMessage{ClientID: "cl_1"}); err != nil {
			t.Fatalf("execute rotate: %v", err)
		}
		secret, ok := collector.Load()
		if !ok || secret != "rotated-secret" {
			t.Fatalf("unexpected rotated secret: %q ok=%v", secret, ok)
		}
	})

	t.Run("prune sessions", func(t *testing.T) {
		svc := stubMutatingService{
			pruneSessionsFn: func(_ context.Context) (int, error) {
				return 3, nil
			},
		}
		cmd := NewPruneSessionsCommand(svc)
		collector := gocmd.NewResult[int]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, PruneSessionsMessage{}); err != nil {
			t.Fatalf("execute prune: %v", err)
		}
		pruned, ok := collector.Load()
		if !ok || pruned != 3 {
			t.Fatalf("unexpected prune count: %d ok=%v", pruned, ok)
		}
	})
}

func TestBeginSignInCommand_StoresResponse(t *testing.T) {
	expected := core.BeginSignInResponse{RedirectURL: "https://provider.example/authorize?state=st", State: "st"}
	svc := stubMutatingService{
		beginSignInFn: func(_ context.Context, req core.BeginSignInRequest) (core.BeginSignInResponse, error) {
			if req.Provider != "google" {
				t.Fatalf("unexpected provider: %q", req.Provider)
			}
			return expected, nil
		},
	}

	cmd := NewBeginSignInCommand(svc)
	collector := gocmd.NewResult[core.BeginSignInResponse]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, BeginSignInMessage{Request: core.BeginSignInRequest{
		Provider: "google",
		ClientID: "oauth-client",
	}}); err != nil {
		t.Fatalf("execute begin sign-in: %v", err)
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.State != expected.State || result.RedirectURL != expected.RedirectURL {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestRefreshTokenCommand_PassesCredentialsAndForce(t *testing.T) {
	svc := stubMutatingService{
		ensureFreshTokenFn: func(_ context.Context, provider, subject string, creds core.RefreshCredentials, force bool) (core.CredentialToken, error) {
			if provider != "google" || subject != "usr_1" {
				t.Fatalf("unexpected refresh target: %q %q", provider, subject)
			}
			if creds.ClientID != "oauth-client" || !force {
				t.Fatalf("unexpected refresh inputs: %#v force=%v", creds, force)
			}
			return core.CredentialToken{Provider: provider, AccessToken: "fresh"}, nil
		},
	}

	cmd := NewRefreshTokenCommand(svc)
	collector := gocmd.NewResult[core.CredentialToken]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, RefreshTokenMessage{
		Provider:    "google",
		Subject:     "usr_1",
		Credentials: core.RefreshCredentials{ClientID: "oauth-client", ClientSecret: "oauth-secret"},
		Force:       true,
	}); err != nil {
		t.Fatalf("execute refresh: %v", err)
	}
	token, ok := collector.Load()
	if !ok || token.AccessToken != "fresh" {
		t.Fatalf("unexpected token result: %#v ok=%v", token, ok)
	}
}

func TestMessages_Validate(t *testing.T) {
	cases := []struct {
		name    string
		message interface{ Validate() error }
		wantErr bool
	}{
		{"set secret ok", SetSecretMessage{ClientID: "c", Label: "l", Key: "k", Value: "v"}, false},
		{"set secret missing key", SetSecretMessage{ClientID: "c", Label: "l"}, true},
		{"grant unknown bits", GrantAccessMessage{ClientID: "c", Label: "l", Mask: core.Permission(32)}, true},
		{"grant zero mask", GrantAccessMessage{ClientID: "c", Label: "l"}, true},
		{"grant ok", GrantAccessMessage{ClientID: "c", Label: "l", Mask: core.PermissionAll}, false},
		{"create client missing name", CreateClientMessage{}, true},
		{"update client no fields", UpdateClientMessage{ClientID: "cl_1"}, true},
		{"begin sign-in missing provider", BeginSignInMessage{Request: core.BeginSignInRequest{ClientID: "c"}}, true},
		{"complete sign-in missing state", CompleteSignInMessage{}, true},
		{"refresh ambiguous creds", RefreshTokenMessage{
			Provider: "google", Subject: "usr_1",
			Credentials: core.RefreshCredentials{
				BasicAuth: &core.BasicAuthCredentials{Username: "u", Password: "p"},
				ClientID:  "c",
			},
		}, true},
		{"prune ok", PruneSessionsMessage{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.message.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
