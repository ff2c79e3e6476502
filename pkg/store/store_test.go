package store

import (
	"path/filepath"
	"testing"
	"time"

	"suggestbox/pkg/models"
	"suggestbox/pkg/storage"
)

// openTestStore opens the store over a fresh YAML file and returns the
// backend path so tests can reopen the same document.
func openTestStore(t *testing.T, opts Options) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suggestions.yml")
	reopenTestStore(t, path, opts)
	return path
}

func reopenTestStore(t *testing.T, path string, opts Options) {
	t.Helper()
	b, err := storage.OpenYAMLFile(path)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	if err := Open(b, opts); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	openTestStore(t, Options{})

	first, err := Create("benches", "near spawn", "u1", "One")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID != "s-001" {
		t.Fatalf("first id: got %q, want s-001", first.ID)
	}
	second, _ := Create("market", "weekly", "u2", "Two")
	if second.ID != "s-002" {
		t.Fatalf("second id: got %q, want s-002", second.ID)
	}
}

func TestIDRecoveryAfterReload(t *testing.T) {
	path := openTestStore(t, Options{})
	for i := 0; i < 3; i++ {
		if _, err := Create("t", "d", "u1", "One"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if !Delete("s-002") {
		t.Fatalf("delete s-002 failed")
	}
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// reload: the sequence resumes past the highest surviving id, so a
	// deleted middle id is never reissued
	reopenTestStore(t, path, Options{})
	s, err := Create("t", "d", "u1", "One")
	if err != nil {
		t.Fatalf("create after reload: %v", err)
	}
	if s.ID != "s-004" {
		t.Fatalf("id after reload: got %q, want s-004", s.ID)
	}
}

func TestIDRecoveryIgnoresForeignIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suggestions.yml")
	b, err := storage.OpenYAMLFile(path)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	// a hand-edited document with an id outside the scheme
	if err := b.SaveAll(map[string]models.SuggestionRecord{
		"legacy-9": {ID: "legacy-9", Title: "old", CreatedAt: "2026-01-01T00:00:00Z"},
		"s-005":    {ID: "s-005", Title: "live", CreatedAt: "2026-01-02T00:00:00Z"},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	reopenTestStore(t, path, Options{})

	// the foreign id is served but does not disturb the sequence
	if _, err := Get("legacy-9"); err != nil {
		t.Fatalf("foreign id should still load: %v", err)
	}
	s, err := Create("t", "d", "u1", "One")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ID != "s-006" {
		t.Fatalf("id: got %q, want s-006", s.ID)
	}
}

func TestQuotaEnforcement(t *testing.T) {
	openTestStore(t, Options{MaxPerAuthor: 1})

	if _, err := Create("one", "d", "u1", "One"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := Create("two", "d", "u1", "One"); err != ErrQuotaExceeded {
		t.Fatalf("second create: got %v, want ErrQuotaExceeded", err)
	}
	// another author is unaffected
	if _, err := Create("theirs", "d", "u2", "Two"); err != nil {
		t.Fatalf("other author create: %v", err)
	}
	if CanCreate("u1") {
		t.Fatalf("CanCreate should be false at the quota")
	}

	// deleting frees the slot
	if !Delete("s-001") {
		t.Fatalf("delete failed")
	}
	if _, err := Create("again", "d", "u1", "One"); err != nil {
		t.Fatalf("create after delete: %v", err)
	}
}

func TestQuotaZeroMeansUnlimited(t *testing.T) {
	openTestStore(t, Options{MaxPerAuthor: 0})
	for i := 0; i < 20; i++ {
		if _, err := Create("t", "d", "u1", "One"); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
}

func TestVotePolicy(t *testing.T) {
	openTestStore(t, Options{})
	s, _ := Create("t", "d", "author", "Author")

	if _, err := Vote(s.ID, "author", models.Upvote); err != ErrSelfVote {
		t.Fatalf("self-vote: got %v, want ErrSelfVote", err)
	}
	res, err := Vote(s.ID, "p1", models.Upvote)
	if err != nil || res != models.VoteUpvoted {
		t.Fatalf("vote: res=%q err=%v", res, err)
	}
	res, err = Vote(s.ID, "p1", models.Upvote)
	if err != nil || res != models.VoteRemoved {
		t.Fatalf("toggle off: res=%q err=%v", res, err)
	}
	if _, err := Vote("s-999", "p1", models.Upvote); err != ErrNotFound {
		t.Fatalf("missing target: got %v, want ErrNotFound", err)
	}
}

func TestSelfVoteAllowedWhenConfigured(t *testing.T) {
	openTestStore(t, Options{AllowSelfVote: true})
	s, _ := Create("t", "d", "author", "Author")
	if _, err := Vote(s.ID, "author", models.Upvote); err != nil {
		t.Fatalf("self-vote with policy enabled: %v", err)
	}
}

func TestSortedPopularIsStable(t *testing.T) {
	openTestStore(t, Options{})
	a, _ := Create("a", "d", "u1", "One")
	b, _ := Create("b", "d", "u2", "Two")
	c, _ := Create("c", "d", "u3", "Three")

	// b outscores the others; a and c tie at zero and must keep
	// insertion order
	if _, err := Vote(b.ID, "p1", models.Upvote); err != nil {
		t.Fatalf("vote: %v", err)
	}

	got := Sorted(SortPopular)
	if len(got) != 3 {
		t.Fatalf("len: got %d, want 3", len(got))
	}
	if got[0].ID != b.ID || got[1].ID != a.ID || got[2].ID != c.ID {
		t.Fatalf("popular order: got %s,%s,%s want %s,%s,%s",
			got[0].ID, got[1].ID, got[2].ID, b.ID, a.ID, c.ID)
	}
}

func TestSortedRecentNewestFirst(t *testing.T) {
	openTestStore(t, Options{})
	a, _ := Create("a", "d", "u1", "One")
	b, _ := Create("b", "d", "u2", "Two")

	// force distinct timestamps; Create stamps time.Now which can land
	// on the same tick
	mu.Lock()
	items[a.ID].CreatedAt = time.Now().UTC().Add(-time.Hour)
	mu.Unlock()

	got := Sorted(SortRecent)
	if got[0].ID != b.ID || got[1].ID != a.ID {
		t.Fatalf("recent order: got %s,%s want %s,%s", got[0].ID, got[1].ID, b.ID, a.ID)
	}
}

func TestMutationsPersistAcrossReload(t *testing.T) {
	path := openTestStore(t, Options{})
	s, _ := Create("original", "text", "u1", "One")
	if !EditContent(s.ID, "edited", "new text") {
		t.Fatalf("edit failed")
	}
	if !SetAdminResponse(s.ID, "we hear you") {
		t.Fatalf("respond failed")
	}
	if _, err := Vote(s.ID, "p1", models.Downvote); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopenTestStore(t, path, Options{})
	got, err := Get(s.ID)
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if got.Title != "edited" || got.Description != "new text" {
		t.Fatalf("edit not persisted: %+v", got)
	}
	if got.AdminResponse != "we hear you" {
		t.Fatalf("response not persisted")
	}
	if got.VoteOf("p1") != models.Downvote {
		t.Fatalf("vote not persisted")
	}
}

func TestListByAuthor(t *testing.T) {
	openTestStore(t, Options{})
	Create("a", "d", "u1", "One")
	Create("b", "d", "u2", "Two")
	Create("c", "d", "u1", "One")

	mine := ListByAuthor("u1")
	if len(mine) != 2 {
		t.Fatalf("len: got %d, want 2", len(mine))
	}
	if mine[0].ID != "s-001" || mine[1].ID != "s-003" {
		t.Fatalf("order: got %s,%s", mine[0].ID, mine[1].ID)
	}
}

func TestParseSortMode(t *testing.T) {
	if m, err := ParseSortMode(""); err != nil || m != SortRecent {
		t.Fatalf("empty: %v %v", m, err)
	}
	if m, err := ParseSortMode("Popular"); err != nil || m != SortPopular {
		t.Fatalf("case-insensitive: %v %v", m, err)
	}
	if _, err := ParseSortMode("newest"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
