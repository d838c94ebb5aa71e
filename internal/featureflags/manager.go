// Package featureflags evaluates runtime feature toggles from a flat
// key=value config string, with deterministic percentage rollouts.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Manager holds parsed flag values keyed by normalized flag name.
// Config shape: "superlikes=on,boosted_discovery=25%,legacy_feed=off".
type Manager struct {
	flags map[string]string
}

// NewManager parses a comma-separated flag list. Malformed entries are
// skipped rather than erroring so one typo cannot take the config down.
func NewManager(raw string) *Manager {
	m := &Manager{flags: make(map[string]string)}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key != "" && value != "" {
			m.flags[key] = value
		}
	}
	return m
}

// Enabled reports whether a flag is on for the given user. Values may be
// on/true/1, off/false/0, or "N%" for a deterministic per-user rollout.
// Unknown flags and unparseable values read as off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}
	if pct, ok := strings.CutSuffix(value, "%"); ok {
		return m.inRollout(name, userID, pct)
	}
	return false
}

func (m *Manager) inRollout(name string, userID uint, pctRaw string) bool {
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil || pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		// Anonymous traffic never lands in a partial rollout.
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// EnabledOrDefault behaves like Enabled but falls back to def when the flag
// is not configured at all. Premium features that ship enabled use this so
// an empty FEATURE_FLAGS config does not turn them off.
func (m *Manager) EnabledOrDefault(name string, userID uint, def bool) bool {
	if m == nil {
		return def
	}
	if _, ok := m.flags[normalize(name)]; !ok {
		return def
	}
	return m.Enabled(name, userID)
}

// Raw returns a copy of the configured flag values.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot evaluates every configured flag for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// rolloutBucket maps (flag, user) to a stable bucket in [0,100).
func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
