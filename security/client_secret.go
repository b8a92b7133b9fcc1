package security

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/goliatone/go-vault/core"
)

// HMACSecretHasher produces keyed HMAC-SHA256 hashes of client secrets. The
// server key never leaves the process, so a leaked registry table alone
// cannot be used to authenticate.
type HMACSecretHasher struct {
	key []byte
}

func NewHMACSecretHasher(keyMaterial []byte) (*HMACSecretHasher, error) {
	key := bytes.TrimSpace(keyMaterial)
	if len(key) == 0 {
		return nil, fmt.Errorf("security: key material is required")
	}
	owned := make([]byte, len(key))
	copy(owned, key)
	return &HMACSecretHasher{key: owned}, nil
}

func NewHMACSecretHasherFromString(key string) (*HMACSecretHasher, error) {
	return NewHMACSecretHasher([]byte(key))
}

func (h *HMACSecretHasher) Hash(secret string) (string, error) {
	if h == nil {
		return "", fmt.Errorf("security: secret hasher is nil")
	}
	if secret == "" {
		return "", fmt.Errorf("security: secret is required")
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the HMAC and compares in constant time.
func (h *HMACSecretHasher) Verify(secret, hash string) bool {
	if h == nil || secret == "" || hash == "" {
		return false
	}
	computed, err := h.Hash(secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(computed), []byte(hash))
}

var _ core.SecretHasher = (*HMACSecretHasher)(nil)
