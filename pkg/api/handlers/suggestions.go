package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"suggestbox/pkg/auth"
	"suggestbox/pkg/browse"
	"suggestbox/pkg/logger"
	"suggestbox/pkg/models"
	"suggestbox/pkg/store"
	"suggestbox/pkg/utils"
)

// RegisterSuggestions registers the suggestion CRUD and vote routes.
func RegisterSuggestions(r *mux.Router) {
	r.HandleFunc("/suggestions", createSuggestion).Methods(http.MethodPost)
	r.HandleFunc("/suggestions", listSuggestions).Methods(http.MethodGet)
	r.HandleFunc("/suggestions/{id}", getSuggestion).Methods(http.MethodGet)
	r.HandleFunc("/suggestions/{id}", editSuggestion).Methods(http.MethodPut)
	r.HandleFunc("/suggestions/{id}", deleteSuggestion).Methods(http.MethodDelete)
	r.HandleFunc("/suggestions/{id}/vote", voteSuggestion).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}/respond", respondSuggestion).Methods(http.MethodPost)
}

type contentBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// validateContent checks the configured length bounds. Empty text is a
// validation failure too; the menus never submit blank fields.
func validateContent(b contentBody) (string, bool) {
	title := strings.TrimSpace(b.Title)
	desc := strings.TrimSpace(b.Description)
	if title == "" {
		return "title required", false
	}
	if len(title) > cfg.Suggestions.MaxTitleLength {
		return "title too long", false
	}
	if desc == "" {
		return "description required", false
	}
	if len(desc) > cfg.Suggestions.MaxDescriptionLength {
		return "description too long", false
	}
	return "", true
}

// createSuggestion handles POST /suggestions. The body carries title and
// description; the author comes from the gateway identity.
func createSuggestion(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body contentBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := validateContent(body); !ok {
		utils.JSONError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	s, err := store.Create(strings.TrimSpace(body.Title), strings.TrimSpace(body.Description), id.ID, id.Name)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, viewOf(s, id.ID))
}

// listSuggestions handles GET /suggestions. Query params: sort
// (recent|popular), page (1-indexed, clamped), mine (restrict to the
// caller's suggestions). This is a stateless listing; menu surfaces use
// the browse session endpoints instead.
func listSuggestions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	mode, err := store.ParseSortMode(r.URL.Query().Get("sort"))
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var list []*models.Suggestion
	if r.URL.Query().Get("mine") != "" {
		list = store.ListByAuthor(id.ID)
	} else {
		list = store.Sorted(mode)
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	size := browser.PageSize()
	pageCount := browse.PageCount(len(list), size)
	page = browse.ClampPage(page, pageCount)
	start := browse.SlotIndex(page, size, 0)
	end := start + size
	if start > len(list) {
		start = len(list)
	}
	if end > len(list) {
		end = len(list)
	}

	items := make([]suggestionView, 0, end-start)
	for _, s := range list[start:end] {
		items = append(items, viewOf(s, id.ID))
	}
	_ = utils.JSONWrite(w, http.StatusOK, pageView{
		View:      browse.ViewAll,
		Sort:      mode,
		Page:      page,
		PageCount: pageCount,
		Total:     len(list),
		Items:     items,
	})
}

func getSuggestion(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	s, err := store.Get(mux.Vars(r)["id"])
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, viewOf(s, id.ID))
}

// editSuggestion handles PUT /suggestions/{id}. Authors may edit their
// own suggestion until staff has responded; staff may edit any.
func editSuggestion(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	target := mux.Vars(r)["id"]
	s, err := store.Get(target)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	isAdmin := id.Role == auth.RoleAdmin
	if !isAdmin {
		if s.AuthorID != id.ID {
			utils.JSONError(w, http.StatusForbidden, "not your suggestion")
			return
		}
		if s.AdminResponse != "" {
			utils.JSONError(w, http.StatusForbidden, "suggestion already has a staff response")
			return
		}
	}

	var body contentBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg, ok := validateContent(body); !ok {
		utils.JSONError(w, http.StatusUnprocessableEntity, msg)
		return
	}
	if !store.EditContent(target, strings.TrimSpace(body.Title), strings.TrimSpace(body.Description)) {
		utils.JSONError(w, http.StatusNotFound, "suggestion not found")
		return
	}
	if isAdmin && s.AuthorID != id.ID {
		logger.AuditEvent("admin_edit", "id", target, "admin", id.ID)
	}
	out, err := store.Get(target)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, viewOf(out, id.ID))
}

// deleteSuggestion handles DELETE /suggestions/{id} with the two-click
// rule: the first request arms a confirmation and returns 202, the next
// request against the same id executes. Arming a different id replaces
// the confirmation without deleting anything.
func deleteSuggestion(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	target := mux.Vars(r)["id"]
	s, err := store.Get(target)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	isAdmin := id.Role == auth.RoleAdmin
	if !isAdmin && s.AuthorID != id.ID {
		utils.JSONError(w, http.StatusForbidden, "not your suggestion")
		return
	}
	if !browser.ConfirmDelete(id.ID, target) {
		_ = utils.JSONWrite(w, http.StatusAccepted, map[string]string{
			"pendingConfirmation": target,
			"message":             "repeat the request to confirm deletion",
		})
		return
	}
	if !store.Delete(target) {
		utils.JSONError(w, http.StatusNotFound, "suggestion not found")
		return
	}
	if isAdmin && s.AuthorID != id.ID {
		logger.AuditEvent("admin_delete", "id", target, "admin", id.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// voteSuggestion handles POST /suggestions/{id}/vote with toggle
// semantics. When the caller has an open browse session the response
// includes the re-rendered page so menus can repaint tallies in place.
func voteSuggestion(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	target := mux.Vars(r)["id"]
	var body struct {
		Type string `json:"type"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var vt models.VoteType
	switch strings.ToUpper(strings.TrimSpace(body.Type)) {
	case string(models.Upvote):
		vt = models.Upvote
	case string(models.Downvote):
		vt = models.Downvote
	default:
		utils.JSONError(w, http.StatusUnprocessableEntity, "vote type must be UPVOTE or DOWNVOTE")
		return
	}
	res, err := store.Vote(target, id.ID, vt)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	s, err := store.Get(target)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	out := struct {
		Result     models.VoteResult `json:"result"`
		Suggestion suggestionView    `json:"suggestion"`
		Page       *pageView         `json:"page,omitempty"`
	}{Result: res, Suggestion: viewOf(s, id.ID)}
	if p, err := browser.Refresh(id.ID); err == nil {
		pv := pageViewOf(p, id.ID)
		out.Page = &pv
	}
	_ = utils.JSONWrite(w, http.StatusOK, out)
}

// respondSuggestion handles POST /suggestions/{id}/respond, staff only.
// A later response overwrites the previous one.
func respondSuggestion(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if id.Role != auth.RoleAdmin {
		utils.JSONError(w, http.StatusForbidden, "staff only")
		return
	}
	target := mux.Vars(r)["id"]
	var body struct {
		Response string `json:"response"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := strings.TrimSpace(body.Response)
	if text == "" {
		utils.JSONError(w, http.StatusUnprocessableEntity, "response required")
		return
	}
	if len(text) > cfg.Suggestions.MaxDescriptionLength {
		utils.JSONError(w, http.StatusUnprocessableEntity, "response too long")
		return
	}
	if !store.SetAdminResponse(target, text) {
		utils.JSONError(w, http.StatusNotFound, "suggestion not found")
		return
	}
	logger.AuditEvent("admin_response_set", "id", target, "admin", id.ID)
	s, err := store.Get(target)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, viewOf(s, id.ID))
}
