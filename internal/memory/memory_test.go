package memory

import (
	"path/filepath"
	"sync"
	"testing"
)

// stores returns one of each Store implementation for table-driven tests.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"inmemory": NewInMemoryStore(),
		"sqlite":   sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			value := map[string]interface{}{"profile": map[string]interface{}{"name": "Acme"}}
			if err := store.Put(NamespaceCompetitors, "acme", value); err != nil {
				t.Fatalf("Put: %v", err)
			}

			got, ok, err := store.Get(NamespaceCompetitors, "acme")
			if err != nil || !ok {
				t.Fatalf("Get: ok=%v err=%v", ok, err)
			}
			profile, _ := got["profile"].(map[string]interface{})
			if profile["name"] != "Acme" {
				t.Errorf("round trip lost data: %+v", got)
			}

			_, ok, err = store.Get(NamespaceCompetitors, "missing")
			if err != nil || ok {
				t.Errorf("missing key: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStoreDeleteAndKeys(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store.Put(NamespaceCompetitors, "beta", map[string]interface{}{"a": 1.0})
			store.Put(NamespaceCompetitors, "alpha", map[string]interface{}{"a": 2.0})
			store.Put(NamespaceUsers, "u1", map[string]interface{}{"a": 3.0})

			keys, err := store.Keys(NamespaceCompetitors)
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(keys) != 2 || keys[0] != "alpha" || keys[1] != "beta" {
				t.Errorf("Keys = %v", keys)
			}

			if err := store.Delete(NamespaceCompetitors, "alpha"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, _ := store.Get(NamespaceCompetitors, "alpha"); ok {
				t.Errorf("deleted key still present")
			}
			if err := store.Delete(NamespaceCompetitors, "never-existed"); err != nil {
				t.Errorf("deleting absent key: %v", err)
			}
		})
	}
}

func TestCompetitorProfileCaseInsensitive(t *testing.T) {
	m := New(NewInMemoryStore())

	profile := map[string]interface{}{"pages_scraped": 4.0}
	if err := m.PutCompetitorProfile("Stripe", profile); err != nil {
		t.Fatalf("PutCompetitorProfile: %v", err)
	}

	for _, variant := range []string{"stripe", "STRIPE", "  Stripe  ", "Stripe"} {
		got, err := m.GetCompetitorProfile(variant)
		if err != nil {
			t.Fatalf("GetCompetitorProfile(%q): %v", variant, err)
		}
		if got == nil || got["pages_scraped"] != 4.0 {
			t.Errorf("GetCompetitorProfile(%q) = %+v", variant, got)
		}
	}
}

func TestAnalysisMergePreservesFields(t *testing.T) {
	m := New(NewInMemoryStore())

	m.PutCompetitorAnalysis("adyen", map[string]interface{}{
		"market_position": "leader",
		"notes":           "from last quarter",
	})
	m.PutCompetitorAnalysis("adyen", map[string]interface{}{
		"market_position": "challenger",
	})

	got, err := m.GetCompetitorAnalysis("Adyen")
	if err != nil {
		t.Fatalf("GetCompetitorAnalysis: %v", err)
	}
	if got["market_position"] != "challenger" {
		t.Errorf("updated field not overwritten: %+v", got)
	}
	if got["notes"] != "from last quarter" {
		t.Errorf("merge discarded untouched field: %+v", got)
	}
}

func TestProfileAndAnalysisShareOneRecord(t *testing.T) {
	m := New(NewInMemoryStore())

	m.PutCompetitorProfile("adyen", map[string]interface{}{"chunks": 2.0})
	m.PutCompetitorAnalysis("adyen", map[string]interface{}{"threat_level": "high"})

	profile, _ := m.GetCompetitorProfile("adyen")
	if profile == nil || profile["chunks"] != 2.0 {
		t.Errorf("analysis write clobbered profile: %+v", profile)
	}
}

func TestSearchCompetitors(t *testing.T) {
	m := New(NewInMemoryStore())
	for _, name := range []string{"stripe", "adyen", "square", "stripe atlas"} {
		m.PutCompetitorProfile(name, map[string]interface{}{"x": 1.0})
	}

	matches, err := m.SearchCompetitors("stripe", 10)
	if err != nil {
		t.Fatalf("SearchCompetitors: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("matches = %v", matches)
	}

	// A domain-style query matches through its first label.
	byDomain, _ := m.SearchCompetitors("stripe.com", 10)
	if len(byDomain) != 2 {
		t.Errorf("domain matches = %v", byDomain)
	}

	limited, _ := m.SearchCompetitors("", 2)
	if len(limited) != 2 {
		t.Errorf("limit not applied: %v", limited)
	}
}

func TestSearchCompetitorsToleratesConcurrentWrites(t *testing.T) {
	m := New(NewInMemoryStore())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.PutCompetitorProfile("rival", map[string]interface{}{"n": float64(n)})
				m.SearchCompetitors("rival", 5)
			}
		}(i)
	}
	wg.Wait()

	matches, err := m.SearchCompetitors("rival", 5)
	if err != nil {
		t.Fatalf("SearchCompetitors after concurrent writes: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("matches = %v", matches)
	}
}

func TestSessionSummaryReplaced(t *testing.T) {
	m := New(NewInMemoryStore())

	m.PutSessionSummary("s1", map[string]interface{}{"phase": "planning"})
	m.PutSessionSummary("s1", map[string]interface{}{"phase": "completed"})

	got, err := m.GetSessionSummary("s1")
	if err != nil {
		t.Fatalf("GetSessionSummary: %v", err)
	}
	if got["phase"] != "completed" {
		t.Errorf("summary = %+v", got)
	}
}

func TestUserProfileAndPreferences(t *testing.T) {
	m := New(NewInMemoryStore())

	m.PutUserProfile("u1", map[string]interface{}{"role": "founder"})
	m.PutUserPreferences("u1", map[string]interface{}{"focus_areas": []interface{}{"pricing"}})

	profile, _ := m.GetUserProfile("u1")
	prefs, _ := m.GetUserPreferences("u1")
	if profile == nil || profile["role"] != "founder" {
		t.Errorf("profile = %+v", profile)
	}
	if prefs == nil {
		t.Fatalf("preferences missing")
	}
}
