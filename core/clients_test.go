package core

import (
	"context"
	"testing"
)

func TestService_CreateClient_ReturnsPlaintextOnce(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	client, secret, err := service.CreateClient(ctx, CreateClientInput{
		Name:        "billing-worker",
		Description: "nightly billing job",
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	if client.ID == "" {
		t.Fatalf("expected generated client id")
	}
	if secret == "" {
		t.Fatalf("expected plaintext secret")
	}

	// Only the hash is persisted; the stored value must differ from the
	// plaintext that was handed back.
	hash, err := service.clientStore.GetSecretHash(ctx, client.ID)
	if err != nil {
		t.Fatalf("get secret hash: %v", err)
	}
	if hash == secret {
		t.Fatalf("client secret stored in plaintext")
	}
}

func TestService_CreateClient_RequiresName(t *testing.T) {
	service := newTestService(t)
	if _, _, err := service.CreateClient(context.Background(), CreateClientInput{Name: "  "}); err == nil {
		t.Fatalf("expected blank name to be rejected")
	}
}

func TestService_CreateClient_DuplicateName(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, _, err := service.CreateClient(ctx, CreateClientInput{Name: "worker"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	_, _, err := service.CreateClient(ctx, CreateClientInput{Name: "worker"})
	if err == nil || !HasTextCode(err, VaultErrorConflict) {
		t.Fatalf("expected duplicate name conflict, got %v", err)
	}
}

func TestService_AuthenticateClient(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	client, secret, err := service.CreateClient(ctx, CreateClientInput{Name: "worker"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	authenticated, err := service.AuthenticateClient(ctx, client.ID, secret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authenticated.ID != client.ID {
		t.Fatalf("unexpected client: %s", authenticated.ID)
	}

	// Wrong secret and unknown id fail with the same error.
	_, wrongSecretErr := service.AuthenticateClient(ctx, client.ID, "wrong")
	_, unknownIDErr := service.AuthenticateClient(ctx, "missing", secret)
	for _, err := range []error{wrongSecretErr, unknownIDErr} {
		if err == nil || !HasTextCode(err, VaultErrorAuthenticationFailed) {
			t.Fatalf("unexpected authentication error: %v", err)
		}
	}
	if wrongSecretErr.Error() != unknownIDErr.Error() {
		t.Fatalf("authentication errors must not distinguish causes: %q vs %q",
			wrongSecretErr.Error(), unknownIDErr.Error())
	}
}

func TestService_RotateClientSecret(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	client, original, err := service.CreateClient(ctx, CreateClientInput{Name: "worker"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	rotated, err := service.RotateClientSecret(ctx, client.ID)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if rotated == original {
		t.Fatalf("expected a new secret after rotation")
	}

	if _, err := service.AuthenticateClient(ctx, client.ID, original); err == nil {
		t.Fatalf("expected original secret to stop working")
	}
	if _, err := service.AuthenticateClient(ctx, client.ID, rotated); err != nil {
		t.Fatalf("expected rotated secret to authenticate: %v", err)
	}

	if _, err := service.RotateClientSecret(ctx, "missing"); err == nil {
		t.Fatalf("expected rotation of unknown client to fail")
	}
}

func TestService_UpdateAndDeleteClient(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	client, _, err := service.CreateClient(ctx, CreateClientInput{Name: "worker"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}

	name := "renamed-worker"
	updated, err := service.UpdateClient(ctx, client.ID, UpdateClientInput{Name: &name})
	if err != nil {
		t.Fatalf("update client: %v", err)
	}
	if updated.Name != "renamed-worker" {
		t.Fatalf("unexpected name: %s", updated.Name)
	}

	blank := " "
	if _, err := service.UpdateClient(ctx, client.ID, UpdateClientInput{Name: &blank}); err == nil {
		t.Fatalf("expected blank rename to be rejected")
	}

	if err := service.DeleteClient(ctx, client.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}
	if _, err := service.GetClient(ctx, client.ID); err == nil {
		t.Fatalf("expected deleted client to be gone")
	}
}

func TestGenerateClientSecret_Unique(t *testing.T) {
	first, err := GenerateClientSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := GenerateClientSecret()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if first == "" || first == second {
		t.Fatalf("expected distinct non-empty secrets")
	}
}
