package core

import "testing"

func TestFlowRegistry_TagsDeterministicOrder(t *testing.T) {
	registry := NewFlowRegistry()
	for _, tag := range []string{"zeta", "alpha", "beta"} {
		if err := registry.Register(&testFlow{tag: tag}); err != nil {
			t.Fatalf("register %s: %v", tag, err)
		}
	}

	tags := registry.Tags()
	want := []string{"alpha", "beta", "zeta"}
	if len(tags) != len(want) {
		t.Fatalf("expected %d tags, got %d", len(want), len(tags))
	}
	for idx := range want {
		if tags[idx] != want[idx] {
			t.Fatalf("unexpected ordering at index %d: got %v want %v", idx, tags, want)
		}
	}
}

func TestFlowRegistry_DuplicateTagRejected(t *testing.T) {
	registry := NewFlowRegistry()
	if err := registry.Register(&testFlow{tag: "github"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(&testFlow{tag: "GitHub"}); err == nil {
		t.Fatalf("expected duplicate tag to be rejected")
	}
}

func TestFlowRegistry_GetNormalizesTag(t *testing.T) {
	registry := NewFlowRegistry()
	if err := registry.Register(&testFlow{tag: "Google"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := registry.Get("  GOOGLE "); !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
	if _, ok := registry.Get("missing"); ok {
		t.Fatalf("expected missing tag to report false")
	}
	if _, ok := registry.Get(""); ok {
		t.Fatalf("expected empty tag to report false")
	}
}

func TestFlowRegistry_RejectsInvalidRegistrations(t *testing.T) {
	registry := NewFlowRegistry()
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil flow to be rejected")
	}
	if err := registry.Register(&testFlow{tag: "  "}); err == nil {
		t.Fatalf("expected blank tag to be rejected")
	}
}
