// Package memory provides the namespaced key-value store shared across
// sessions: user profiles, session summaries, and cached competitor records.
package memory

import (
	"fmt"
	"strings"
)

// Namespace names.
const (
	NamespaceUsers       = "users"
	NamespaceSessions    = "sessions"
	NamespaceCompetitors = "competitors"
)

// Store is a namespaced persistent key-value store. Get and Put must be
// atomic per key; cross-key transactions are not required.
type Store interface {
	Get(namespace, key string) (map[string]interface{}, bool, error)
	Put(namespace, key string, value map[string]interface{}) error
	Delete(namespace, key string) error
	Keys(namespace string) ([]string, error)
	Close() error
}

// NormalizeCompetitor canonicalizes a competitor name for use as a cache key.
func NormalizeCompetitor(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Memory wraps a Store with the record vocabulary the stages use.
type Memory struct {
	store Store
}

// New wraps a store.
func New(store Store) *Memory {
	return &Memory{store: store}
}

// Close closes the underlying store.
func (m *Memory) Close() error {
	return m.store.Close()
}

// getField returns one field of a namespaced record, or nil if absent.
func (m *Memory) getField(namespace, key, field string) (map[string]interface{}, error) {
	record, ok, err := m.store.Get(namespace, key)
	if err != nil || !ok {
		return nil, err
	}
	if sub, ok := record[field].(map[string]interface{}); ok {
		return sub, nil
	}
	return nil, nil
}

// putField merges one field into a namespaced record, preserving siblings.
func (m *Memory) putField(namespace, key, field string, value map[string]interface{}) error {
	record, ok, err := m.store.Get(namespace, key)
	if err != nil {
		return err
	}
	if !ok {
		record = map[string]interface{}{}
	}
	record[field] = value
	return m.store.Put(namespace, key, record)
}

// GetUserProfile returns the stored profile for a user, or nil.
func (m *Memory) GetUserProfile(userID string) (map[string]interface{}, error) {
	return m.getField(NamespaceUsers, userID, "profile")
}

// PutUserProfile stores a user profile.
func (m *Memory) PutUserProfile(userID string, profile map[string]interface{}) error {
	return m.putField(NamespaceUsers, userID, "profile", profile)
}

// GetUserPreferences returns the stored preferences for a user, or nil.
func (m *Memory) GetUserPreferences(userID string) (map[string]interface{}, error) {
	return m.getField(NamespaceUsers, userID, "preferences")
}

// PutUserPreferences stores user preferences.
func (m *Memory) PutUserPreferences(userID string, prefs map[string]interface{}) error {
	return m.putField(NamespaceUsers, userID, "preferences", prefs)
}

// GetSessionSummary returns the stored summary for a session, or nil.
func (m *Memory) GetSessionSummary(sessionID string) (map[string]interface{}, error) {
	return m.getField(NamespaceSessions, sessionID, "summary")
}

// PutSessionSummary stores a session summary, replacing any prior one.
func (m *Memory) PutSessionSummary(sessionID string, summary map[string]interface{}) error {
	return m.putField(NamespaceSessions, sessionID, "summary", summary)
}

// GetCompetitorProfile returns the cached profile for a competitor, or nil.
// The lookup key is case-insensitive and whitespace-trimmed.
func (m *Memory) GetCompetitorProfile(name string) (map[string]interface{}, error) {
	return m.getField(NamespaceCompetitors, NormalizeCompetitor(name), "profile")
}

// PutCompetitorProfile caches a competitor profile.
func (m *Memory) PutCompetitorProfile(name string, profile map[string]interface{}) error {
	return m.putField(NamespaceCompetitors, NormalizeCompetitor(name), "profile", profile)
}

// GetCompetitorAnalysis returns the cached analysis for a competitor, or nil.
func (m *Memory) GetCompetitorAnalysis(name string) (map[string]interface{}, error) {
	return m.getField(NamespaceCompetitors, NormalizeCompetitor(name), "analysis")
}

// PutCompetitorAnalysis merges an analysis into the cached competitor record
// without discarding fields the new analysis does not carry.
func (m *Memory) PutCompetitorAnalysis(name string, analysis map[string]interface{}) error {
	key := NormalizeCompetitor(name)
	existing, err := m.getField(NamespaceCompetitors, key, "analysis")
	if err != nil {
		return err
	}
	if existing == nil {
		existing = map[string]interface{}{}
	}
	for k, v := range analysis {
		existing[k] = v
	}
	return m.putField(NamespaceCompetitors, key, "analysis", existing)
}

// SearchCompetitors scans cached competitor names for a substring match in
// either direction, also trying the first label of a domain-style query so
// "stripe.com" finds both "stripe" and "stripe atlas". The scan is best
// effort under concurrent writes and returns at most limit names.
func (m *Memory) SearchCompetitors(query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	keys, err := m.store.Keys(NamespaceCompetitors)
	if err != nil {
		return nil, fmt.Errorf("scanning competitors: %w", err)
	}
	q := NormalizeCompetitor(query)
	base := strings.SplitN(q, ".", 2)[0]
	var matches []string
	for _, k := range keys {
		if q == "" || strings.Contains(k, q) || strings.Contains(q, k) || (base != "" && strings.Contains(k, base)) {
			matches = append(matches, k)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}
