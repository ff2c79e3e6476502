package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"suggestbox/pkg/logger"
	"suggestbox/pkg/store"
)

// Kind is the step a user's interaction session is currently waiting on.
type Kind int

const (
	CreateTitle Kind = iota
	CreateDescription
	EditTitle
	EditDescription
	AdminResponse
)

func (k Kind) String() string {
	switch k {
	case CreateTitle:
		return "create_title"
	case CreateDescription:
		return "create_description"
	case EditTitle:
		return "edit_title"
	case EditDescription:
		return "edit_description"
	case AdminResponse:
		return "admin_response"
	default:
		return "unknown"
	}
}

// Config carries the session policy knobs.
type Config struct {
	// Timeout is the per-step inactivity deadline.
	Timeout time.Duration
	// CancelWords destroy the session when typed (case-insensitive).
	CancelWords []string
	// MaxTitleLen and MaxDescriptionLen bound accepted input.
	MaxTitleLen       int
	MaxDescriptionLen int
}

// session is one user's in-flight multi-step workflow. generation guards
// scheduled timeouts: a timer fired against an older generation is a
// no-op, so advancing a step can never be wiped by a stale callback.
type session struct {
	kind         Kind
	userName     string
	scratchTitle string
	targetID     string
	generation   uint64
	deadline     time.Time
	timer        *time.Timer
}

// Manager owns at most one interaction session per user. Starting a new
// workflow silently discards any prior session for that user.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	sessions map[string]*session
	gen      uint64
}

// NewManager builds a manager with the given policy.
func NewManager(cfg Config) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if len(cfg.CancelWords) == 0 {
		cfg.CancelWords = []string{"cancel", "exit"}
	}
	return &Manager{cfg: cfg, sessions: make(map[string]*session)}
}

// StartCreate begins the two-step create workflow and returns the first
// prompt. The quota is re-checked at the final step; checking here too
// keeps users out of a flow that cannot succeed.
func (m *Manager) StartCreate(userID, userName string) (string, error) {
	if !store.CanCreate(userID) {
		return "", store.ErrQuotaExceeded
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace(userID, &session{kind: CreateTitle, userName: userName})
	return fmt.Sprintf("Enter a title for your suggestion (max %d characters), or type %q to stop.", m.cfg.MaxTitleLen, m.cfg.CancelWords[0]), nil
}

// StartEdit begins the edit workflow against an existing suggestion and
// returns the first prompt, which echoes the current title.
func (m *Manager) StartEdit(userID, targetID string) (string, error) {
	s, err := store.Get(targetID)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace(userID, &session{kind: EditTitle, targetID: targetID})
	return fmt.Sprintf("Editing %s (current title: %q). Enter the new title, or type %q to stop.", targetID, s.Title, m.cfg.CancelWords[0]), nil
}

// StartAdminResponse begins the single-step response workflow.
func (m *Manager) StartAdminResponse(userID, targetID string) (string, error) {
	if _, err := store.Get(targetID); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replace(userID, &session{kind: AdminResponse, targetID: targetID})
	return fmt.Sprintf("Enter the staff response for %s, or type %q to stop.", targetID, m.cfg.CancelWords[0]), nil
}

// HandleText feeds one line of the user's text into their session. The
// first return reports whether the text was consumed (and so must be
// suppressed from its normal channel); the second is the reply to show.
func (m *Manager) HandleText(userID, text string) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return false, ""
	}
	if m.isCancelWord(text) {
		m.drop(userID, sess)
		return true, "Cancelled. Nothing was saved."
	}

	switch sess.kind {
	case CreateTitle, EditTitle:
		if len(text) > m.cfg.MaxTitleLen {
			m.touch(userID, sess)
			return true, fmt.Sprintf("That title is too long (max %d characters). Try again.", m.cfg.MaxTitleLen)
		}
		sess.scratchTitle = text
		if sess.kind == CreateTitle {
			sess.kind = CreateDescription
		} else {
			sess.kind = EditDescription
		}
		m.touch(userID, sess)
		return true, fmt.Sprintf("Now enter the description (max %d characters).", m.cfg.MaxDescriptionLen)

	case CreateDescription:
		if len(text) > m.cfg.MaxDescriptionLen {
			m.touch(userID, sess)
			return true, fmt.Sprintf("That description is too long (max %d characters). Try again.", m.cfg.MaxDescriptionLen)
		}
		m.drop(userID, sess)
		s, err := store.Create(sess.scratchTitle, text, userID, sess.userName)
		if err != nil {
			return true, "You have reached your suggestion limit."
		}
		return true, fmt.Sprintf("Suggestion %s created. Thanks!", s.ID)

	case EditDescription:
		if len(text) > m.cfg.MaxDescriptionLen {
			m.touch(userID, sess)
			return true, fmt.Sprintf("That description is too long (max %d characters). Try again.", m.cfg.MaxDescriptionLen)
		}
		m.drop(userID, sess)
		if !store.EditContent(sess.targetID, sess.scratchTitle, text) {
			return true, fmt.Sprintf("Suggestion %s no longer exists.", sess.targetID)
		}
		return true, fmt.Sprintf("Suggestion %s updated.", sess.targetID)

	case AdminResponse:
		if len(text) > m.cfg.MaxDescriptionLen {
			m.touch(userID, sess)
			return true, fmt.Sprintf("That response is too long (max %d characters). Try again.", m.cfg.MaxDescriptionLen)
		}
		m.drop(userID, sess)
		if !store.SetAdminResponse(sess.targetID, text) {
			return true, fmt.Sprintf("Suggestion %s no longer exists.", sess.targetID)
		}
		logger.AuditEvent("admin_response_set", "id", sess.targetID, "admin", userID)
		return true, fmt.Sprintf("Response recorded on %s.", sess.targetID)
	}
	return false, ""
}

// Cancel destroys the user's session if any, reporting whether one
// existed. Used for explicit cancellation and disconnect cleanup.
func (m *Manager) Cancel(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return false
	}
	m.drop(userID, sess)
	return true
}

// Active reports whether the user has a session in flight.
func (m *Manager) Active(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

// ActiveKind returns the user's current step and whether one exists.
func (m *Manager) ActiveKind(userID string) (Kind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return 0, false
	}
	return sess.kind, true
}

// ActiveCount returns the number of in-flight sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SweepExpired drops sessions whose deadline has passed. The per-session
// timers normally handle this; the sweep is a safety net for timers lost
// to clock weirdness. Returns how many were removed.
func (m *Manager) SweepExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for userID, sess := range m.sessions {
		if now.After(sess.deadline) {
			m.drop(userID, sess)
			n++
		}
	}
	if n > 0 {
		logger.Info("sessions_swept", "expired", n)
	}
	return n
}

// replace installs a fresh session for the user, discarding any prior
// one without committing its partial state. Caller holds m.mu.
func (m *Manager) replace(userID string, sess *session) {
	if old, ok := m.sessions[userID]; ok {
		m.drop(userID, old)
		logger.Debug("session_replaced", "user", userID)
	}
	m.sessions[userID] = sess
	m.touch(userID, sess)
}

// touch advances the session generation and re-arms its timeout. Caller
// holds m.mu.
func (m *Manager) touch(userID string, sess *session) {
	if sess.timer != nil {
		sess.timer.Stop()
	}
	m.gen++
	gen := m.gen
	sess.generation = gen
	sess.deadline = time.Now().Add(m.cfg.Timeout)
	sess.timer = time.AfterFunc(m.cfg.Timeout, func() {
		m.expire(userID, gen)
	})
}

// expire is the timeout callback. It only destroys the session if the
// generation still matches what the timer was armed against.
func (m *Manager) expire(userID string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok || sess.generation != gen {
		return
	}
	m.drop(userID, sess)
	logger.Debug("session_expired", "user", userID, "step", sess.kind.String())
}

// drop removes the session and disarms its timer. Caller holds m.mu.
func (m *Manager) drop(userID string, sess *session) {
	if sess.timer != nil {
		sess.timer.Stop()
	}
	delete(m.sessions, userID)
}

func (m *Manager) isCancelWord(text string) bool {
	t := strings.TrimSpace(text)
	for _, w := range m.cfg.CancelWords {
		if strings.EqualFold(t, w) {
			return true
		}
	}
	return false
}
