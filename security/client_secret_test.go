package security

import "testing"

func TestHMACSecretHasher_HashDeterministicPerKey(t *testing.T) {
	hasher, err := NewHMACSecretHasherFromString("server-key")
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	first, err := hasher.Hash("secret-value")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := hasher.Hash("secret-value")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first != second {
		t.Fatalf("same key and secret must hash identically")
	}

	other, err := NewHMACSecretHasherFromString("different-key")
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	otherHash, err := other.Hash("secret-value")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if otherHash == first {
		t.Fatalf("different keys must produce different hashes")
	}
}

func TestHMACSecretHasher_Verify(t *testing.T) {
	hasher, err := NewHMACSecretHasherFromString("server-key")
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	hash, err := hasher.Hash("secret-value")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !hasher.Verify("secret-value", hash) {
		t.Fatalf("expected matching secret to verify")
	}
	if hasher.Verify("wrong", hash) {
		t.Fatalf("expected wrong secret to fail")
	}
	if hasher.Verify("", hash) || hasher.Verify("secret-value", "") {
		t.Fatalf("expected empty inputs to fail")
	}
}

func TestNewHMACSecretHasher_RequiresKey(t *testing.T) {
	if _, err := NewHMACSecretHasher(nil); err == nil {
		t.Fatalf("expected missing key to fail")
	}
	if _, err := NewHMACSecretHasherFromString("   "); err == nil {
		t.Fatalf("expected blank key to fail")
	}
}
