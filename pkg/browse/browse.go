package browse

import (
	"errors"
	"sort"
	"sync"
	"time"

	"suggestbox/pkg/logger"
	"suggestbox/pkg/models"
	"suggestbox/pkg/store"
)

// ViewKind names what a browse session is looking at.
type ViewKind string

const (
	ViewAll    ViewKind = "all"
	ViewMine   ViewKind = "mine"
	ViewSingle ViewKind = "single"
	ViewAdmin  ViewKind = "admin"
)

var ErrNoSession = errors.New("no open browse session")

// PageCount returns ceil(total/pageSize) with a floor of one page.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 1
	}
	n := (total + pageSize - 1) / pageSize
	if n < 1 {
		return 1
	}
	return n
}

// ClampPage forces a 1-indexed page number into [1, pageCount].
func ClampPage(page, pageCount int) int {
	if page < 1 {
		return 1
	}
	if page > pageCount {
		return pageCount
	}
	return page
}

// SlotIndex maps slot s on 1-indexed page p to an index into the
// snapshot. Callers must range-check the result themselves.
func SlotIndex(page, pageSize, slot int) int {
	return (page-1)*pageSize + slot
}

// Page is the rendered view handed to the presentation layer.
type Page struct {
	View      ViewKind             `json:"view"`
	Sort      store.SortMode       `json:"sort"`
	Page      int                  `json:"page"`
	PageCount int                  `json:"pageCount"`
	Total     int                  `json:"total"`
	Items     []*models.Suggestion `json:"-"`
}

// session holds one user's browsing position. The snapshot is the full
// ordered result list captured at (re)navigation time; clicks resolve
// against it, never against a live query, so concurrent mutations by
// other users cannot shift what this user is pointing at.
type session struct {
	view       ViewKind
	ownerID    string
	targetID   string
	sort       store.SortMode
	page       int
	snapshot   []*models.Suggestion
	lastActive time.Time
}

// Manager owns at most one browse session per user, plus the per-user
// pending delete confirmations. Confirmations live outside the session
// so a direct API delete is held to the same two-click rule.
type Manager struct {
	mu       sync.Mutex
	pageSize int
	sessions map[string]*session
	pending  map[string]string
}

// NewManager builds a manager with the given page size.
func NewManager(pageSize int) *Manager {
	if pageSize <= 0 {
		pageSize = 45
	}
	return &Manager{pageSize: pageSize, sessions: make(map[string]*session), pending: make(map[string]string)}
}

// PageSize returns the configured page size.
func (m *Manager) PageSize() int { return m.pageSize }

// Open starts (or restarts) a browse session for the user and returns
// the first page. targetID is only consulted for ViewSingle.
func (m *Manager) Open(userID string, view ViewKind, targetID string, mode store.SortMode, page int) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := &session{
		view:     view,
		ownerID:  userID,
		targetID: targetID,
		sort:     mode,
		page:     page,
	}
	if err := m.materialize(sess); err != nil {
		return Page{}, err
	}
	m.sessions[userID] = sess
	return m.render(sess), nil
}

// Navigate re-materializes the snapshot at the requested page and sort.
// Moving anywhere clears any pending delete confirmation.
func (m *Manager) Navigate(userID string, page int, mode store.SortMode) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return Page{}, ErrNoSession
	}
	sess.page = page
	if mode != "" {
		sess.sort = mode
	}
	delete(m.pending, userID)
	if err := m.materialize(sess); err != nil {
		return Page{}, err
	}
	return m.render(sess), nil
}

// Refresh re-renders the current position against a fresh snapshot,
// used after a mutation so the caller can show up-to-date tallies.
func (m *Manager) Refresh(userID string) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return Page{}, ErrNoSession
	}
	if err := m.materialize(sess); err != nil {
		return Page{}, err
	}
	return m.render(sess), nil
}

// Resolve maps a slot on the user's current page to the suggestion it
// pointed at when the page was materialized. Out-of-range slots resolve
// to nothing rather than an error.
func (m *Manager) Resolve(userID string, slot int) (*models.Suggestion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return nil, false
	}
	sess.lastActive = time.Now()
	if slot < 0 {
		return nil, false
	}
	idx := SlotIndex(sess.page, m.pageSize, slot)
	if idx >= len(sess.snapshot) {
		return nil, false
	}
	return sess.snapshot[idx].Clone(), true
}

// ConfirmDelete implements the two-click guard. The first call against a
// target arms the confirmation and returns false; the next call with the
// same target returns true and clears it. A different target replaces
// the armed confirmation without executing anything.
func (m *Manager) ConfirmDelete(userID, targetID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		sess.lastActive = time.Now()
	}
	if m.pending[userID] == targetID {
		delete(m.pending, userID)
		return true
	}
	m.pending[userID] = targetID
	return false
}

// PendingDelete returns the armed confirmation target, if any.
func (m *Manager) PendingDelete(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.pending[userID]
	return t, ok
}

// Close ends the user's browse session, clearing any pending
// confirmation. Reports whether a session existed.
func (m *Manager) Close(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, userID)
	if _, ok := m.sessions[userID]; !ok {
		return false
	}
	delete(m.sessions, userID)
	return true
}

// ActiveCount returns the number of open browse sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops sessions idle longer than maxIdle and returns how many.
func (m *Manager) Sweep(now time.Time, maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for userID, sess := range m.sessions {
		if now.Sub(sess.lastActive) > maxIdle {
			delete(m.sessions, userID)
			delete(m.pending, userID)
			n++
		}
	}
	if n > 0 {
		logger.Info("browse_sessions_swept", "idle", n)
	}
	return n
}

// materialize captures a fresh snapshot for the session's view and
// clamps its page into range. Caller holds m.mu.
func (m *Manager) materialize(sess *session) error {
	switch sess.view {
	case ViewMine:
		list := store.ListByAuthor(sess.ownerID)
		sortInPlace(list, sess.sort)
		sess.snapshot = list
	case ViewSingle:
		s, err := store.Get(sess.targetID)
		if err != nil {
			return err
		}
		sess.snapshot = []*models.Suggestion{s}
	default:
		sess.snapshot = store.Sorted(sess.sort)
	}
	sess.page = ClampPage(sess.page, PageCount(len(sess.snapshot), m.pageSize))
	sess.lastActive = time.Now()
	return nil
}

// render builds the page window over the current snapshot. Caller holds
// m.mu.
func (m *Manager) render(sess *session) Page {
	total := len(sess.snapshot)
	start := SlotIndex(sess.page, m.pageSize, 0)
	end := start + m.pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	items := make([]*models.Suggestion, end-start)
	copy(items, sess.snapshot[start:end])
	return Page{
		View:      sess.view,
		Sort:      sess.sort,
		Page:      sess.page,
		PageCount: PageCount(total, m.pageSize),
		Total:     total,
		Items:     items,
	}
}

// sortInPlace applies the store's ordering rules to an already-copied
// list, keeping insertion order on ties.
func sortInPlace(list []*models.Suggestion, mode store.SortMode) {
	switch mode {
	case store.SortPopular:
		sort.SliceStable(list, func(i, j int) bool { return list[i].Score() > list[j].Score() })
	default:
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	}
}
