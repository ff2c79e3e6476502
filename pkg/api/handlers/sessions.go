package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"suggestbox/pkg/auth"
	"suggestbox/pkg/logger"
	"suggestbox/pkg/store"
	"suggestbox/pkg/utils"
)

// RegisterSessions registers the free-text workflow routes. These mirror
// the chat prompts of the in-game flow: start a workflow, then feed each
// line through /input until it completes, cancels or times out.
func RegisterSessions(r *mux.Router) {
	r.HandleFunc("/sessions/create", startCreate).Methods(http.MethodPost)
	r.HandleFunc("/sessions/edit/{id}", startEdit).Methods(http.MethodPost)
	r.HandleFunc("/sessions/respond/{id}", startRespond).Methods(http.MethodPost)
	r.HandleFunc("/sessions", cancelSession).Methods(http.MethodDelete)
	r.HandleFunc("/input", handleInput).Methods(http.MethodPost)
	r.HandleFunc("/disconnect", handleDisconnect).Methods(http.MethodPost)
}

func startCreate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	reply, err := sessions.StartCreate(id.ID, id.Name)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"reply": reply})
}

// startEdit opens an edit workflow. Authors may edit their own
// suggestion until staff responded; staff may edit any.
func startEdit(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	target := mux.Vars(r)["id"]
	s, err := store.Get(target)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	if id.Role != auth.RoleAdmin {
		if s.AuthorID != id.ID {
			utils.JSONError(w, http.StatusForbidden, "not your suggestion")
			return
		}
		if s.AdminResponse != "" {
			utils.JSONError(w, http.StatusForbidden, "suggestion already has a staff response")
			return
		}
	}
	reply, err := sessions.StartEdit(id.ID, target)
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"reply": reply})
}

func startRespond(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if id.Role != auth.RoleAdmin {
		utils.JSONError(w, http.StatusForbidden, "staff only")
		return
	}
	reply, err := sessions.StartAdminResponse(id.ID, mux.Vars(r)["id"])
	if err != nil {
		writeStoreErr(w, err)
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"reply": reply})
}

func cancelSession(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if !sessions.Cancel(id.ID) {
		utils.JSONError(w, http.StatusNotFound, "no active session")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"reply": "Cancelled. Nothing was saved."})
}

// handleInput feeds one line of player text through the session state
// machine. consumed=false tells the host platform the text was not ours
// and should flow to its normal channel (public chat).
func handleInput(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	consumed, reply := sessions.HandleText(id.ID, body.Text)
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Consumed bool   `json:"consumed"`
		Reply    string `json:"reply,omitempty"`
	}{Consumed: consumed, Reply: reply})
}

// handleDisconnect drops all transient state for the caller: the text
// workflow and the browse session including any pending delete
// confirmation. Called by the host when the player leaves.
func handleDisconnect(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	hadSession := sessions.Cancel(id.ID)
	hadBrowse := browser.Close(id.ID)
	if hadSession || hadBrowse {
		logger.Debug("player_disconnected", "identity", id.ID, "session", hadSession, "browse", hadBrowse)
	}
	w.WriteHeader(http.StatusNoContent)
}
