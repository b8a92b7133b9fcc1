package core

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

type testFlow struct {
	tag          string
	scopes       []string
	exchangeErr  error
	refreshErr   error
	userInfoErr  error
	token             TokenResponse
	refreshed         TokenResponse
	profile           map[string]any
	exchangeReqs      []ExchangeCodeRequest
	exchangeDeadlines []time.Time
	refreshCalls      int
}

func (f *testFlow) Tag() string { return f.tag }

func (f *testFlow) Scopes() []string { return append([]string(nil), f.scopes...) }

func (f *testFlow) BuildAuthorizationURL(session SignInSession, redirectURI string, extra map[string]string) (string, error) {
	url := "https://provider.example/authorize?state=" + session.State
	if redirectURI != "" {
		url += "&redirect_uri=" + redirectURI
	}
	for key, value := range extra {
		url += "&" + key + "=" + value
	}
	return url, nil
}

func (f *testFlow) ExchangeCode(ctx context.Context, req ExchangeCodeRequest) (TokenResponse, error) {
	f.exchangeReqs = append(f.exchangeReqs, req)
	if deadline, ok := ctx.Deadline(); ok {
		f.exchangeDeadlines = append(f.exchangeDeadlines, deadline)
	}
	if f.exchangeErr != nil {
		return TokenResponse{}, f.exchangeErr
	}
	return f.token, nil
}

// RefreshToken mirrors the real flow contract: without force, a token that
// has not crossed its raw expiry is left untouched.
func (f *testFlow) RefreshToken(_ context.Context, token *CredentialToken, creds RefreshCredentials, force bool) error {
	if f.refreshErr != nil {
		return f.refreshErr
	}
	if err := creds.Validate(); err != nil {
		return err
	}
	if !force && !token.IsExpired(time.Now(), 0) {
		return nil
	}
	f.refreshCalls++
	return token.RefreshFromResponse(f.refreshed, time.Now())
}

func (f *testFlow) FetchUserInfo(context.Context, string) (map[string]any, error) {
	if f.userInfoErr != nil {
		return nil, f.userInfoErr
	}
	if f.profile == nil {
		return map[string]any{"id": "user-1"}, nil
	}
	return copyAnyMap(f.profile), nil
}

type memorySecretStore struct {
	mu      sync.Mutex
	entries map[string]Secret
}

func newMemorySecretStore() *memorySecretStore {
	return &memorySecretStore{entries: map[string]Secret{}}
}

func secretKey(label, key string) string { return label + "\x00" + key }

func (s *memorySecretStore) Get(_ context.Context, label, key string) (Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, ok := s.entries[secretKey(label, key)]
	if !ok {
		return Secret{}, NewNotFoundError(fmt.Sprintf("secret not found: %s/%s", label, key))
	}
	return secret, nil
}

func (s *memorySecretStore) Has(_ context.Context, label, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[secretKey(label, key)]
	return ok, nil
}

func (s *memorySecretStore) Set(_ context.Context, label, key, value string) (SetOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	existing, ok := s.entries[secretKey(label, key)]
	if ok {
		existing.Value = value
		existing.UpdatedAt = now
		s.entries[secretKey(label, key)] = existing
		return SetOutcomeUpdated, nil
	}
	s.entries[secretKey(label, key)] = Secret{
		Label:     label,
		Key:       key,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return SetOutcomeCreated, nil
}

func (s *memorySecretStore) Delete(_ context.Context, label, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[secretKey(label, key)]; !ok {
		return NewNotFoundError(fmt.Sprintf("secret not found: %s/%s", label, key))
	}
	delete(s.entries, secretKey(label, key))
	return nil
}

func (s *memorySecretStore) ListKeys(_ context.Context, label string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := []string{}
	for _, secret := range s.entries {
		if secret.Label == label {
			keys = append(keys, secret.Key)
		}
	}
	return keys, nil
}

type memoryAccessStore struct {
	mu    sync.Mutex
	masks map[string]Permission
}

func newMemoryAccessStore() *memoryAccessStore {
	return &memoryAccessStore{masks: map[string]Permission{}}
}

func grantKey(clientID, label string) string { return clientID + "\x00" + label }

func (s *memoryAccessStore) Grant(_ context.Context, clientID, label string, mask Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masks[grantKey(clientID, label)] = mask
	return nil
}

func (s *memoryAccessStore) Revoke(_ context.Context, clientID, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.masks, grantKey(clientID, label))
	return nil
}

func (s *memoryAccessStore) HasAccess(_ context.Context, clientID, label string, required Permission) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.masks[grantKey(clientID, label)].Has(required), nil
}

func (s *memoryAccessStore) GetMask(_ context.Context, clientID, label string) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.masks[grantKey(clientID, label)], nil
}

type memoryClientStore struct {
	mu      sync.Mutex
	clients map[string]Client
	hashes  map[string]string
}

func newMemoryClientStore() *memoryClientStore {
	return &memoryClientStore{clients: map[string]Client{}, hashes: map[string]string{}}
}

func (s *memoryClientStore) Create(_ context.Context, client Client, secretHash string) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.clients {
		if existing.Name == client.Name {
			return Client{}, NewConflictError("client name already exists: " + client.Name)
		}
	}
	s.clients[client.ID] = client
	s.hashes[client.ID] = secretHash
	return client, nil
}

func (s *memoryClientStore) Get(_ context.Context, id string) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.clients[id]
	if !ok {
		return Client{}, NewNotFoundError("client not found: " + id)
	}
	return client, nil
}

func (s *memoryClientStore) List(_ context.Context) ([]Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Client, 0, len(s.clients))
	for _, client := range s.clients {
		out = append(out, client)
	}
	return out, nil
}

func (s *memoryClientStore) Update(_ context.Context, id string, in UpdateClientInput) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.clients[id]
	if !ok {
		return Client{}, NewNotFoundError("client not found: " + id)
	}
	if in.Name != nil {
		client.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		client.Description = strings.TrimSpace(*in.Description)
	}
	s.clients[id] = client
	return client, nil
}

func (s *memoryClientStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return NewNotFoundError("client not found: " + id)
	}
	delete(s.clients, id)
	delete(s.hashes, id)
	return nil
}

func (s *memoryClientStore) GetSecretHash(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[id]
	if !ok {
		return "", NewNotFoundError("client not found: " + id)
	}
	return hash, nil
}

func (s *memoryClientStore) ReplaceSecretHash(_ context.Context, id, secretHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[id]; !ok {
		return NewNotFoundError("client not found: " + id)
	}
	s.hashes[id] = secretHash
	return nil
}

type memoryCredentialStore struct {
	mu     sync.Mutex
	tokens map[string]CredentialToken
}

func newMemoryCredentialStore() *memoryCredentialStore {
	return &memoryCredentialStore{tokens: map[string]CredentialToken{}}
}

func credentialKey(provider, subject string) string { return provider + "\x00" + subject }

func (s *memoryCredentialStore) Put(_ context.Context, provider, subject string, token CredentialToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[credentialKey(provider, subject)] = token
	return nil
}

func (s *memoryCredentialStore) Get(_ context.Context, provider, subject string) (CredentialToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[credentialKey(provider, subject)]
	if !ok {
		return CredentialToken{}, NewNotFoundError(
			fmt.Sprintf("credential not found: %s/%s", provider, subject))
	}
	return token, nil
}

func (s *memoryCredentialStore) Delete(_ context.Context, provider, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, credentialKey(provider, subject))
	return nil
}

type testSecretHasher struct{}

func (testSecretHasher) Hash(secret string) (string, error) {
	mac := hmac.New(sha256.New, []byte("test-key"))
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func (h testSecretHasher) Verify(secret, hash string) bool {
	computed, err := h.Hash(secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(computed), []byte(hash))
}

func newTestService(t interface{ Fatalf(string, ...any) }, options ...Option) *Service {
	base := []Option{
		WithSecretStore(newMemorySecretStore()),
		WithAccessStore(newMemoryAccessStore()),
		WithClientStore(newMemoryClientStore()),
		WithCredentialStore(newMemoryCredentialStore()),
		WithSessionStore(NewMemorySessionStore(DefaultSessionTTL)),
		WithSecretHasher(testSecretHasher{}),
	}
	service, err := NewService(DefaultConfig(), append(base, options...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}
