package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateClientSecret returns a new high-entropy client secret. The
// plaintext is handed to the caller exactly once; only its hash is stored.
func GenerateClientSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate client secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// CreateClient registers a new client and returns it together with the
// plaintext secret. The secret cannot be recovered afterwards, only rotated.
func (s *Service) CreateClient(ctx context.Context, in CreateClientInput) (client Client, secret string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_name": in.Name}
	defer func() {
		s.observeOperation(ctx, startedAt, "client_create", err, fields)
	}()

	if err = s.requireClientRegistry(); err != nil {
		err = s.mapError(err)
		return Client{}, "", err
	}
	if err = in.Validate(); err != nil {
		err = s.mapError(err)
		return Client{}, "", err
	}

	secret, err = GenerateClientSecret()
	if err != nil {
		err = s.mapError(err)
		return Client{}, "", err
	}
	hash, err := s.secretHasher.Hash(secret)
	if err != nil {
		err = s.mapError(err)
		return Client{}, "", err
	}

	client, err = s.clientStore.Create(ctx, Client{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   time.Now().UTC(),
	}, hash)
	if err != nil {
		err = s.mapError(err)
		return Client{}, "", err
	}
	fields["client_id"] = client.ID
	return client, secret, nil
}

// AuthenticateClient verifies a client id and plaintext secret pair. An
// unknown id and a wrong secret produce the same error so callers cannot
// probe the registry.
func (s *Service) AuthenticateClient(ctx context.Context, clientID, secret string) (client Client, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID}
	defer func() {
		s.observeOperation(ctx, startedAt, "client_authenticate", err, fields)
	}()

	if err = s.requireClientRegistry(); err != nil {
		err = s.mapError(err)
		return Client{}, err
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || strings.TrimSpace(secret) == "" {
		err = s.mapError(NewAuthenticationFailedError("client authentication failed"))
		return Client{}, err
	}

	hash, lookupErr := s.clientStore.GetSecretHash(ctx, clientID)
	if lookupErr != nil || !s.secretHasher.Verify(secret, hash) {
		err = s.mapError(NewAuthenticationFailedError("client authentication failed"))
		return Client{}, err
	}

	client, err = s.clientStore.Get(ctx, clientID)
	if err != nil {
		err = s.mapError(err)
		return Client{}, err
	}
	return client, nil
}

// RotateClientSecret replaces a client's secret and returns the new
// plaintext. The previous secret stops working immediately.
func (s *Service) RotateClientSecret(ctx context.Context, clientID string) (secret string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID}
	defer func() {
		s.observeOperation(ctx, startedAt, "client_rotate_secret", err, fields)
	}()

	if err = s.requireClientRegistry(); err != nil {
		err = s.mapError(err)
		return "", err
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		err = s.mapError(fmt.Errorf("core: client id is required"))
		return "", err
	}
	if _, err = s.clientStore.Get(ctx, clientID); err != nil {
		err = s.mapError(err)
		return "", err
	}

	secret, err = GenerateClientSecret()
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	hash, err := s.secretHasher.Hash(secret)
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	if err = s.clientStore.ReplaceSecretHash(ctx, clientID, hash); err != nil {
		err = s.mapError(err)
		return "", err
	}
	return secret, nil
}

func (s *Service) GetClient(ctx context.Context, clientID string) (Client, error) {
	if err := s.requireClientRegistry(); err != nil {
		return Client{}, s.mapError(err)
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return Client{}, s.mapError(fmt.Errorf("core: client id is required"))
	}
	client, err := s.clientStore.Get(ctx, clientID)
	if err != nil {
		return Client{}, s.mapError(err)
	}
	return client, nil
}

func (s *Service) ListClients(ctx context.Context) ([]Client, error) {
	if err := s.requireClientRegistry(); err != nil {
		return nil, s.mapError(err)
	}
	clients, err := s.clientStore.List(ctx)
	if err != nil {
		return nil, s.mapError(err)
	}
	return clients, nil
}

func (s *Service) UpdateClient(ctx context.Context, clientID string, in UpdateClientInput) (client Client, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID}
	defer func() {
		s.observeOperation(ctx, startedAt, "client_update", err, fields)
	}()

	if err = s.requireClientRegistry(); err != nil {
		err = s.mapError(err)
		return Client{}, err
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		err = s.mapError(fmt.Errorf("core: client id is required"))
		return Client{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		err = s.mapError(fmt.Errorf("core: client name is required"))
		return Client{}, err
	}

	client, err = s.clientStore.Update(ctx, clientID, in)
	if err != nil {
		err = s.mapError(err)
		return Client{}, err
	}
	return client, nil
}

// DeleteClient removes a client from the registry. Grants referencing the
// client remain until revoked; they no longer authenticate anything.
func (s *Service) DeleteClient(ctx context.Context, clientID string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"client_id": clientID}
	defer func() {
		s.observeOperation(ctx, startedAt, "client_delete", err, fields)
	}()

	if err = s.requireClientRegistry(); err != nil {
		err = s.mapError(err)
		return err
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		err = s.mapError(fmt.Errorf("core: client id is required"))
		return err
	}

	if err = s.clientStore.Delete(ctx, clientID); err != nil {
		err = s.mapError(err)
		return err
	}
	return nil
}

func (s *Service) requireClientRegistry() error {
	if s == nil {
		return fmt.Errorf("core: service is not configured")
	}
	if s.clientStore == nil {
		return fmt.Errorf("core: client store is not configured")
	}
	if s.secretHasher == nil {
		return fmt.Errorf("core: secret hasher is not configured")
	}
	return nil
}
