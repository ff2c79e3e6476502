package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"suggestbox/pkg/auth"
	"suggestbox/pkg/browse"
	"suggestbox/pkg/logger"
	"suggestbox/pkg/store"
	"suggestbox/pkg/utils"
)

// RegisterBrowse registers the menu-surface routes. A browse session
// materializes a snapshot; selections resolve against that snapshot
// until the user navigates again, so concurrent mutations by others do
// not shift what a mid-click user is pointing at.
func RegisterBrowse(r *mux.Router) {
	r.HandleFunc("/browse", openBrowse).Methods(http.MethodPost)
	r.HandleFunc("/browse", closeBrowse).Methods(http.MethodDelete)
	r.HandleFunc("/browse/navigate", navigateBrowse).Methods(http.MethodPost)
	r.HandleFunc("/browse/select", selectSlot).Methods(http.MethodPost)
	r.HandleFunc("/browse/delete", deleteSlot).Methods(http.MethodPost)
}

type openBody struct {
	View   browse.ViewKind `json:"view"`
	Target string          `json:"target,omitempty"`
	Sort   string          `json:"sort,omitempty"`
	Page   int             `json:"page,omitempty"`
}

func openBrowse(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body openBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	view := body.View
	switch view {
	case "":
		view = browse.ViewAll
	case browse.ViewAll, browse.ViewMine, browse.ViewSingle:
	case browse.ViewAdmin:
		if id.Role != auth.RoleAdmin {
			utils.JSONError(w, http.StatusForbidden, "staff only")
			return
		}
	default:
		utils.JSONError(w, http.StatusBadRequest, "unknown view")
		return
	}
	sortStr := body.Sort
	if sortStr == "" {
		sortStr = cfg.Suggestions.DefaultSort
	}
	mode, err := store.ParseSortMode(sortStr)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	page := body.Page
	if page == 0 {
		page = 1
	}
	p, err := browser.Open(id.ID, view, body.Target, mode, page)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, pageViewOf(p, id.ID))
}

func navigateBrowse(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Page int    `json:"page"`
		Sort string `json:"sort,omitempty"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var mode store.SortMode
	if body.Sort != "" {
		m, err := store.ParseSortMode(body.Sort)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = m
	}
	p, err := browser.Navigate(id.ID, body.Page, mode)
	if err != nil {
		writeBrowseErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, pageViewOf(p, id.ID))
}

// selectSlot resolves a clicked slot against the caller's snapshot.
// Out-of-range slots return an empty object rather than an error; a
// click on a blank grid cell is not a fault.
func selectSlot(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Slot int `json:"slot"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := browser.Resolve(id.ID, body.Slot)
	if !ok {
		_ = utils.JSONWrite(w, http.StatusOK, struct {
			Suggestion *suggestionView `json:"suggestion"`
		}{})
		return
	}
	v := viewOf(s, id.ID)
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Suggestion *suggestionView `json:"suggestion"`
	}{Suggestion: &v})
}

// deleteSlot runs the destructive click on a slot: first click arms the
// confirmation, the second click on the same target deletes. The
// response carries the re-rendered page after a successful delete.
func deleteSlot(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Slot int `json:"slot"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, ok := browser.Resolve(id.ID, body.Slot)
	if !ok {
		utils.JSONError(w, http.StatusNotFound, "nothing at that slot")
		return
	}
	isAdmin := id.Role == auth.RoleAdmin
	if !isAdmin && s.AuthorID != id.ID {
		utils.JSONError(w, http.StatusForbidden, "not your suggestion")
		return
	}
	if !browser.ConfirmDelete(id.ID, s.ID) {
		_ = utils.JSONWrite(w, http.StatusAccepted, map[string]string{
			"pendingConfirmation": s.ID,
			"message":             "click again to confirm deletion",
		})
		return
	}
	if !store.Delete(s.ID) {
		utils.JSONError(w, http.StatusNotFound, "suggestion not found")
		return
	}
	if isAdmin && s.AuthorID != id.ID {
		logger.AuditEvent("admin_delete", "id", s.ID, "admin", id.ID)
	}
	out := struct {
		Deleted string    `json:"deleted"`
		Page    *pageView `json:"page,omitempty"`
	}{Deleted: s.ID}
	if p, err := browser.Refresh(id.ID); err == nil {
		pv := pageViewOf(p, id.ID)
		out.Page = &pv
	}
	_ = utils.JSONWrite(w, http.StatusOK, out)
}

func closeBrowse(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	browser.Close(id.ID)
	w.WriteHeader(http.StatusNoContent)
}

func writeBrowseErr(w http.ResponseWriter, err error) {
	if err == browse.ErrNoSession {
		utils.JSONError(w, http.StatusConflict, "no open browse session")
		return
	}
	writeStoreErr(w, err)
}
