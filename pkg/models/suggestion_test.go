package models

import (
	"testing"
	"time"
)

func TestVoteToggleSemantics(t *testing.T) {
	s := NewSuggestion("s-001", "title", "desc", "author", "Author")

	if res := s.Vote("p1", Upvote); res != VoteUpvoted {
		t.Fatalf("first upvote: got %q, want %q", res, VoteUpvoted)
	}
	if res := s.Vote("p1", Upvote); res != VoteRemoved {
		t.Fatalf("repeat upvote: got %q, want %q", res, VoteRemoved)
	}
	if s.HasVoted("p1") {
		t.Fatalf("vote should be gone after toggle-off")
	}

	if res := s.Vote("p1", Downvote); res != VoteDownvoted {
		t.Fatalf("downvote: got %q, want %q", res, VoteDownvoted)
	}
	if res := s.Vote("p1", Upvote); res != VoteUpvoted {
		t.Fatalf("switch to upvote: got %q, want %q", res, VoteUpvoted)
	}
	if _, still := s.Downvotes["p1"]; still {
		t.Fatalf("switching sides must remove the old vote; sets overlap")
	}
	if got := s.VoteOf("p1"); got != Upvote {
		t.Fatalf("VoteOf: got %q, want %q", got, Upvote)
	}
}

func TestVoteSetsStayDisjoint(t *testing.T) {
	s := NewSuggestion("s-001", "t", "d", "a", "A")
	players := []string{"p1", "p2", "p3"}
	moves := []VoteType{Upvote, Downvote, Upvote, Upvote, Downvote}

	for _, p := range players {
		for _, vt := range moves {
			s.Vote(p, vt)
			_, up := s.Upvotes[p]
			_, down := s.Downvotes[p]
			if up && down {
				t.Fatalf("player %s in both vote sets", p)
			}
		}
	}
}

func TestScore(t *testing.T) {
	s := NewSuggestion("s-001", "t", "d", "a", "A")
	s.Vote("p1", Upvote)
	s.Vote("p2", Upvote)
	s.Vote("p3", Downvote)
	if got := s.Score(); got != 1 {
		t.Fatalf("score: got %d, want 1", got)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	s := NewSuggestion("s-042", "build a pier", "on the east shore", "u9", "Nine")
	s.CreatedAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	s.Vote("p1", Upvote)
	s.Vote("p2", Downvote)
	s.AdminResponse = "planned for next season"

	rec := s.ToRecord()
	if rec.CreatedAt != "2026-03-14T09:26:53Z" {
		t.Fatalf("createdAt serialization: got %q", rec.CreatedAt)
	}

	back, err := FromRecord(rec)
	if err != nil {
		t.Fatalf("FromRecord: %v", err)
	}
	if back.ID != s.ID || back.Title != s.Title || back.Description != s.Description {
		t.Fatalf("content mismatch after round trip: %+v", back)
	}
	if !back.CreatedAt.Equal(s.CreatedAt) {
		t.Fatalf("createdAt mismatch: got %v, want %v", back.CreatedAt, s.CreatedAt)
	}
	if back.VoteOf("p1") != Upvote || back.VoteOf("p2") != Downvote {
		t.Fatalf("votes lost in round trip")
	}
	if back.AdminResponse != s.AdminResponse {
		t.Fatalf("adminResponse lost in round trip")
	}
}

func TestFromRecordRejectsBadTimestamp(t *testing.T) {
	rec := SuggestionRecord{ID: "s-001", Title: "t", CreatedAt: "not-a-time"}
	if _, err := FromRecord(rec); err == nil {
		t.Fatalf("expected error for malformed createdAt")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewSuggestion("s-001", "t", "d", "a", "A")
	s.Vote("p1", Upvote)
	c := s.Clone()
	c.Vote("p2", Upvote)
	if s.HasVoted("p2") {
		t.Fatalf("mutating the clone leaked into the original")
	}
}
