package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"suggestbox/pkg/auth"
	"suggestbox/pkg/store"
	"suggestbox/pkg/utils"
)

// RegisterAdmin registers staff-only operational routes.
func RegisterAdmin(r *mux.Router) {
	r.HandleFunc("/admin/stats", adminStats).Methods(http.MethodGet)
}

// adminStats handles GET /admin/stats with a moderation overview.
func adminStats(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if id.Role != auth.RoleAdmin {
		utils.JSONError(w, http.StatusForbidden, "staff only")
		return
	}

	var upvotes, downvotes, responded int
	authors := map[string]int{}
	for _, s := range store.ListAll() {
		upvotes += len(s.Upvotes)
		downvotes += len(s.Downvotes)
		if s.AdminResponse != "" {
			responded++
		}
		authors[s.AuthorID]++
	}

	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Suggestions    int `json:"suggestions"`
		Responded      int `json:"responded"`
		Upvotes        int `json:"upvotes"`
		Downvotes      int `json:"downvotes"`
		Authors        int `json:"authors"`
		QuotaPerAuthor int `json:"quotaPerAuthor"`
		ActiveSessions int `json:"activeSessions"`
		BrowseSessions int `json:"browseSessions"`
	}{
		Suggestions:    store.Count(),
		Responded:      responded,
		Upvotes:        upvotes,
		Downvotes:      downvotes,
		Authors:        len(authors),
		QuotaPerAuthor: store.MaxPerAuthor(),
		ActiveSessions: sessions.ActiveCount(),
		BrowseSessions: browser.ActiveCount(),
	})
}
