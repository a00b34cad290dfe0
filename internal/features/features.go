// Package features holds runtime toggles for optional behavior. Flags
// are registered at startup and flipped without a restart.
package features

import (
	"sort"
	"sync"
)

// Flag names known to the service.
const (
	// FeatureCacheEnabled toggles the calculation result cache.
	FeatureCacheEnabled = "cache_enabled"
	// FeatureEventHooksEnabled toggles catalog and calculation events.
	FeatureEventHooksEnabled = "event_hooks_enabled"
	// FeatureMilesRanking toggles miles-valuation re-ranking when the
	// caller prefers miles.
	FeatureMilesRanking = "miles_ranking"
)

// Flag is a named toggle with its current state.
type Flag struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Manager is a concurrency-safe flag registry.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]Flag
}

func NewManager() *Manager {
	return &Manager{flags: make(map[string]Flag)}
}

// Register adds or replaces a flag with the given initial state.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[name] = Flag{Name: name, Enabled: enabled, Description: description}
}

// IsEnabled reports a flag's state. Unknown flags are disabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flags[name].Enabled
}

// SetEnabled flips a registered flag. Unknown names are ignored.
func (m *Manager) SetEnabled(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.flags[name]; ok {
		f.Enabled = enabled
		m.flags[name] = f
	}
}

// List returns all flags sorted by name.
func (m *Manager) List() []Flag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Flag, 0, len(m.flags))
	for _, f := range m.flags {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
