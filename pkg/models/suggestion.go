package models

import (
	"sort"
	"time"
)

// VoteType is the kind of vote a player casts on a suggestion.
type VoteType string

const (
	Upvote   VoteType = "UPVOTE"
	Downvote VoteType = "DOWNVOTE"
)

// VoteResult reports what a vote call actually did. Casting the vote a
// player already holds removes it; casting the opposite vote moves it.
type VoteResult string

const (
	VoteUpvoted   VoteResult = "upvoted"
	VoteDownvoted VoteResult = "downvoted"
	VoteRemoved   VoteResult = "removed"
)

// Suggestion is the in-memory aggregate. Vote sets are keyed by opaque
// player identity ids and are always disjoint. Callers outside pkg/store
// only ever see copies (Clone), never the live maps.
type Suggestion struct {
	ID            string
	Title         string
	Description   string
	AuthorID      string
	AuthorName    string
	CreatedAt     time.Time
	Upvotes       map[string]struct{}
	Downvotes     map[string]struct{}
	AdminResponse string
}

// NewSuggestion builds a fresh suggestion with empty vote sets.
func NewSuggestion(id, title, description, authorID, authorName string) *Suggestion {
	return &Suggestion{
		ID:          id,
		Title:       title,
		Description: description,
		AuthorID:    authorID,
		AuthorName:  authorName,
		CreatedAt:   time.Now().UTC(),
		Upvotes:     map[string]struct{}{},
		Downvotes:   map[string]struct{}{},
	}
}

// Vote applies toggle semantics for one player:
//   - same vote again -> removed
//   - opposite vote held -> moved to the new side
//   - no vote held -> added
//
// The two sets stay disjoint in every case.
func (s *Suggestion) Vote(playerID string, vt VoteType) VoteResult {
	_, hadUp := s.Upvotes[playerID]
	_, hadDown := s.Downvotes[playerID]

	if vt == Upvote {
		if hadUp {
			delete(s.Upvotes, playerID)
			return VoteRemoved
		}
		s.Upvotes[playerID] = struct{}{}
		delete(s.Downvotes, playerID)
		return VoteUpvoted
	}
	if hadDown {
		delete(s.Downvotes, playerID)
		return VoteRemoved
	}
	s.Downvotes[playerID] = struct{}{}
	delete(s.Upvotes, playerID)
	return VoteDownvoted
}

// Score is upvotes minus downvotes.
func (s *Suggestion) Score() int {
	return len(s.Upvotes) - len(s.Downvotes)
}

// VoteOf returns the vote the player currently holds, or "" if none.
func (s *Suggestion) VoteOf(playerID string) VoteType {
	if _, ok := s.Upvotes[playerID]; ok {
		return Upvote
	}
	if _, ok := s.Downvotes[playerID]; ok {
		return Downvote
	}
	return ""
}

// HasVoted reports whether the player holds any vote on this suggestion.
func (s *Suggestion) HasVoted(playerID string) bool {
	return s.VoteOf(playerID) != ""
}

// Clone returns a deep copy safe to hand outside the store.
func (s *Suggestion) Clone() *Suggestion {
	c := *s
	c.Upvotes = make(map[string]struct{}, len(s.Upvotes))
	for k := range s.Upvotes {
		c.Upvotes[k] = struct{}{}
	}
	c.Downvotes = make(map[string]struct{}, len(s.Downvotes))
	for k := range s.Downvotes {
		c.Downvotes[k] = struct{}{}
	}
	return &c
}

// SuggestionRecord is the durable form of a suggestion. It round-trips
// losslessly through the storage backends; adminResponse is omitted when
// absent and vote sets are serialized as sorted lists so rewrites of the
// document are byte-stable.
type SuggestionRecord struct {
	ID            string   `yaml:"id" json:"id"`
	Title         string   `yaml:"title" json:"title"`
	Description   string   `yaml:"description" json:"description"`
	AuthorID      string   `yaml:"authorId" json:"authorId"`
	AuthorName    string   `yaml:"authorName" json:"authorName"`
	CreatedAt     string   `yaml:"createdAt" json:"createdAt"`
	Upvotes       []string `yaml:"upvotes" json:"upvotes"`
	Downvotes     []string `yaml:"downvotes" json:"downvotes"`
	AdminResponse string   `yaml:"adminResponse,omitempty" json:"adminResponse,omitempty"`
}

// ToRecord converts the aggregate into its durable form.
func (s *Suggestion) ToRecord() SuggestionRecord {
	return SuggestionRecord{
		ID:            s.ID,
		Title:         s.Title,
		Description:   s.Description,
		AuthorID:      s.AuthorID,
		AuthorName:    s.AuthorName,
		CreatedAt:     s.CreatedAt.Format(time.RFC3339Nano),
		Upvotes:       setToList(s.Upvotes),
		Downvotes:     setToList(s.Downvotes),
		AdminResponse: s.AdminResponse,
	}
}

// FromRecord reconstructs the aggregate from its durable form. The
// createdAt timestamp must parse; other fields are taken as-is.
func FromRecord(r SuggestionRecord) (*Suggestion, error) {
	ts, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &Suggestion{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		AuthorID:      r.AuthorID,
		AuthorName:    r.AuthorName,
		CreatedAt:     ts,
		Upvotes:       listToSet(r.Upvotes),
		Downvotes:     listToSet(r.Downvotes),
		AdminResponse: r.AdminResponse,
	}, nil
}

func setToList(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func listToSet(l []string) map[string]struct{} {
	out := make(map[string]struct{}, len(l))
	for _, v := range l {
		out[v] = struct{}{}
	}
	return out
}
