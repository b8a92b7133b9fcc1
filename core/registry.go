package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FlowRegistry dispatches sign-in flows by provider tag. It is populated
// once at startup and injected into the federation service; there is no
// package-level shared state.
type FlowRegistry struct {
	mu    sync.RWMutex
	flows map[string]Flow
}

func NewFlowRegistry() *FlowRegistry {
	return &FlowRegistry{flows: make(map[string]Flow)}
}

func (r *FlowRegistry) Register(flow Flow) error {
	if flow == nil {
		return fmt.Errorf("core: flow is nil")
	}
	tag := strings.TrimSpace(strings.ToLower(flow.Tag()))
	if tag == "" {
		return fmt.Errorf("core: flow tag is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.flows[tag]; exists {
		return fmt.Errorf("core: flow already registered: %s", tag)
	}
	r.flows[tag] = flow
	return nil
}

func (r *FlowRegistry) Get(tag string) (Flow, bool) {
	tag = strings.TrimSpace(strings.ToLower(tag))
	if tag == "" {
		return nil, false
	}
	r.mu.RLock()
	flow, ok := r.flows[tag]
	r.mu.RUnlock()
	return flow, ok
}

func (r *FlowRegistry) Tags() []string {
	r.mu.RLock()
	tags := make([]string, 0, len(r.flows))
	for tag := range r.flows {
		tags = append(tags, tag)
	}
	r.mu.RUnlock()
	sort.Strings(tags)
	return tags
}
