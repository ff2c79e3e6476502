package store

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"suggestbox/pkg/logger"
	"suggestbox/pkg/models"
	"suggestbox/pkg/storage"
)

// The store keeps every suggestion in memory behind one mutex and mirrors
// the full set into the storage backend on each mutation. A global handle
// keeps usage simple across the package boundary, same as the DB handle
// elsewhere in this codebase.
var (
	mu      sync.Mutex
	backend storage.Backend
	items   map[string]*models.Suggestion
	// order remembers insertion order for stable sort tie-breaks.
	order []string
	// nextSeq is the last sequence number handed out (or recovered).
	nextSeq uint64

	maxPerAuthor  int
	allowSelfVote bool
)

var (
	ErrNotFound      = errors.New("suggestion not found")
	ErrQuotaExceeded = errors.New("suggestion quota exceeded")
	ErrSelfVote      = errors.New("voting on your own suggestion is disabled")
)

// SortMode selects the ordering of Sorted.
type SortMode string

const (
	SortRecent  SortMode = "recent"
	SortPopular SortMode = "popular"
)

// ParseSortMode parses a sort mode name case-insensitively.
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "recent":
		return SortRecent, nil
	case "popular":
		return SortPopular, nil
	default:
		return "", fmt.Errorf("unknown sort mode %q", s)
	}
}

// Options carries the policy knobs the store enforces.
type Options struct {
	// MaxPerAuthor caps open suggestions per author; 0 means unlimited.
	MaxPerAuthor int
	// AllowSelfVote permits authors to vote on their own suggestions.
	AllowSelfVote bool
}

// Open loads the full document from the backend, rebuilds the in-memory
// set and recovers the id sequence. Records that fail to reconstruct are
// skipped with a warning.
func Open(b storage.Backend, opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	records, err := b.LoadAll()
	if err != nil {
		return err
	}
	loaded := make(map[string]*models.Suggestion, len(records))
	for key, rec := range records {
		s, err := models.FromRecord(rec)
		if err != nil {
			logger.Warn("suggestion_record_invalid", "key", key, "error", err)
			continue
		}
		loaded[key] = s
	}

	backend = b
	items = loaded
	order = loadOrder(loaded)
	nextSeq = recoverSeq(loaded)
	maxPerAuthor = opts.MaxPerAuthor
	allowSelfVote = opts.AllowSelfVote
	logger.Info("store_opened", "suggestions", len(items), "next_seq", nextSeq+1)
	return nil
}

// Close releases the backend and drops the in-memory state.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if backend == nil {
		return nil
	}
	err := backend.Close()
	backend = nil
	items = nil
	order = nil
	logger.Info("store_closed")
	return err
}

// Ready reports whether the store is opened and usable.
func Ready() bool {
	mu.Lock()
	defer mu.Unlock()
	return backend != nil
}

// loadOrder derives a stable base ordering for reloaded data: creation
// time ascending, sequence number ascending on equal timestamps. This
// stands in for the original insertion order across restarts.
func loadOrder(m map[string]*models.Suggestion) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := m[ids[i]], m[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return seqOf(ids[i]) < seqOf(ids[j])
	})
	return ids
}

// recoverSeq scans loaded ids for the highest numeric suffix so restarts
// never reissue a live id. Non-numeric suffixes are ignored.
func recoverSeq(m map[string]*models.Suggestion) uint64 {
	var max uint64
	for id := range m {
		if n := seqOf(id); n > max {
			max = n
		}
	}
	return max
}

func seqOf(id string) uint64 {
	rest, ok := strings.CutPrefix(id, "s-")
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// allocateID hands out the next "s-NNN" id, zero-padded to three digits
// but free to grow wider. The sequence advances on every attempt, so a
// collision (hand-edited document) just burns a number and moves on.
func allocateID() string {
	for {
		nextSeq++
		id := fmt.Sprintf("s-%03d", nextSeq)
		if _, exists := items[id]; !exists {
			return id
		}
	}
}

// persist rewrites the whole durable document. A failed write is logged
// and counted but never rolls back the in-memory mutation.
func persist() {
	if backend == nil {
		return
	}
	records := make(map[string]models.SuggestionRecord, len(items))
	for id, s := range items {
		records[id] = s.ToRecord()
	}
	if err := backend.SaveAll(records); err != nil {
		persistFailures.Inc()
		logger.Error("suggestion_save_failed", "suggestions", len(records), "error", err)
	}
}

// Create inserts a new suggestion for the author, enforcing the per-author
// quota, and persists it. Returns a copy of the stored suggestion.
func Create(title, description, authorID, authorName string) (*models.Suggestion, error) {
	mu.Lock()
	defer mu.Unlock()
	if maxPerAuthor > 0 && countByAuthor(authorID) >= maxPerAuthor {
		return nil, ErrQuotaExceeded
	}
	s := models.NewSuggestion(allocateID(), title, description, authorID, authorName)
	items[s.ID] = s
	order = append(order, s.ID)
	persist()
	suggestionsCreated.Inc()
	logger.Info("suggestion_created", "id", s.ID, "author", authorID)
	return s.Clone(), nil
}

// Get returns a copy of the suggestion or ErrNotFound.
func Get(id string) (*models.Suggestion, error) {
	mu.Lock()
	defer mu.Unlock()
	s, ok := items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// Delete removes the suggestion if present and persists. Reports whether
// it existed. Ownership checks belong to the caller.
func Delete(id string) bool {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := items[id]; !ok {
		return false
	}
	delete(items, id)
	for i, v := range order {
		if v == id {
			order = append(order[:i], order[i+1:]...)
			break
		}
	}
	persist()
	suggestionsDeleted.Inc()
	logger.Info("suggestion_deleted", "id", id)
	return true
}

// EditContent replaces title and description if the suggestion exists.
func EditContent(id, newTitle, newDescription string) bool {
	mu.Lock()
	defer mu.Unlock()
	s, ok := items[id]
	if !ok {
		return false
	}
	s.Title = newTitle
	s.Description = newDescription
	persist()
	logger.Info("suggestion_edited", "id", id)
	return true
}

// SetAdminResponse records (or overwrites) the staff response.
func SetAdminResponse(id, text string) bool {
	mu.Lock()
	defer mu.Unlock()
	s, ok := items[id]
	if !ok {
		return false
	}
	s.AdminResponse = text
	persist()
	logger.Info("suggestion_responded", "id", id)
	return true
}

// Vote applies toggle-vote semantics for one player and persists the
// result. Self-votes are rejected when disabled by configuration.
func Vote(id, playerID string, vt models.VoteType) (models.VoteResult, error) {
	mu.Lock()
	defer mu.Unlock()
	s, ok := items[id]
	if !ok {
		return "", ErrNotFound
	}
	if !allowSelfVote && s.AuthorID == playerID {
		return "", ErrSelfVote
	}
	res := s.Vote(playerID, vt)
	persist()
	votesCast.WithLabelValues(string(res)).Inc()
	logger.Debug("suggestion_voted", "id", id, "player", playerID, "result", string(res))
	return res, nil
}

// ListAll returns copies of every suggestion in insertion order.
func ListAll() []*models.Suggestion {
	mu.Lock()
	defer mu.Unlock()
	return snapshot(func(*models.Suggestion) bool { return true })
}

// ListByAuthor returns copies of the author's suggestions in insertion
// order.
func ListByAuthor(authorID string) []*models.Suggestion {
	mu.Lock()
	defer mu.Unlock()
	return snapshot(func(s *models.Suggestion) bool { return s.AuthorID == authorID })
}

// Sorted returns copies of all suggestions ordered by the given mode.
// Ties keep insertion order; the sort is stable by construction.
func Sorted(mode SortMode) []*models.Suggestion {
	mu.Lock()
	out := snapshot(func(*models.Suggestion) bool { return true })
	mu.Unlock()

	switch mode {
	case SortPopular:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Score() > out[j].Score()
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}

// Count returns the number of live suggestions.
func Count() int {
	mu.Lock()
	defer mu.Unlock()
	return len(items)
}

// CountByAuthor returns how many suggestions the author currently owns.
func CountByAuthor(authorID string) int {
	mu.Lock()
	defer mu.Unlock()
	return countByAuthor(authorID)
}

// CanCreate reports whether the author is under the quota.
func CanCreate(authorID string) bool {
	mu.Lock()
	defer mu.Unlock()
	return maxPerAuthor == 0 || countByAuthor(authorID) < maxPerAuthor
}

// MaxPerAuthor returns the configured quota (0 = unlimited).
func MaxPerAuthor() int {
	mu.Lock()
	defer mu.Unlock()
	return maxPerAuthor
}

func countByAuthor(authorID string) int {
	n := 0
	for _, s := range items {
		if s.AuthorID == authorID {
			n++
		}
	}
	return n
}

// snapshot walks the insertion order and clones matching suggestions.
// Callers must hold mu.
func snapshot(keep func(*models.Suggestion) bool) []*models.Suggestion {
	out := make([]*models.Suggestion, 0, len(order))
	for _, id := range order {
		s, ok := items[id]
		if !ok {
			continue
		}
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	return out
}
