package handlers

import (
	"errors"
	"net/http"
	"time"

	"suggestbox/pkg/browse"
	"suggestbox/pkg/config"
	"suggestbox/pkg/models"
	"suggestbox/pkg/session"
	"suggestbox/pkg/store"
	"suggestbox/pkg/utils"
)

// Shared handler state, installed once at startup.
var (
	sessions *session.Manager
	browser  *browse.Manager
	cfg      *config.Config
)

// Configure wires the managers and effective config into the handlers.
func Configure(c *config.Config, sm *session.Manager, bm *browse.Manager) {
	cfg = c
	sessions = sm
	browser = bm
}

// suggestionView is the wire form of a suggestion. Vote sets are never
// exposed; viewers get tallies plus their own vote.
type suggestionView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	AuthorID      string    `json:"authorId"`
	AuthorName    string    `json:"authorName"`
	CreatedAt     time.Time `json:"createdAt"`
	Upvotes       int       `json:"upvotes"`
	Downvotes     int       `json:"downvotes"`
	Score         int       `json:"score"`
	MyVote        string    `json:"myVote,omitempty"`
	AdminResponse string    `json:"adminResponse,omitempty"`
}

func viewOf(s *models.Suggestion, viewer string) suggestionView {
	return suggestionView{
		ID:            s.ID,
		Title:         s.Title,
		Description:   s.Description,
		AuthorID:      s.AuthorID,
		AuthorName:    s.AuthorName,
		CreatedAt:     s.CreatedAt,
		Upvotes:       len(s.Upvotes),
		Downvotes:     len(s.Downvotes),
		Score:         s.Score(),
		MyVote:        string(s.VoteOf(viewer)),
		AdminResponse: s.AdminResponse,
	}
}

// pageView is the wire form of a rendered browse page.
type pageView struct {
	View      browse.ViewKind  `json:"view"`
	Sort      store.SortMode   `json:"sort"`
	Page      int              `json:"page"`
	PageCount int              `json:"pageCount"`
	Total     int              `json:"total"`
	Items     []suggestionView `json:"items"`
}

func pageViewOf(p browse.Page, viewer string) pageView {
	items := make([]suggestionView, 0, len(p.Items))
	for _, s := range p.Items {
		items = append(items, viewOf(s, viewer))
	}
	return pageView{
		View:      p.View,
		Sort:      p.Sort,
		Page:      p.Page,
		PageCount: p.PageCount,
		Total:     p.Total,
		Items:     items,
	}
}

// writeStoreErr maps the store error taxonomy onto HTTP statuses.
func writeStoreErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.JSONError(w, http.StatusNotFound, "suggestion not found")
	case errors.Is(err, store.ErrQuotaExceeded):
		utils.JSONError(w, http.StatusConflict, "suggestion quota exceeded")
	case errors.Is(err, store.ErrSelfVote):
		utils.JSONError(w, http.StatusForbidden, "voting on your own suggestion is disabled")
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}
