package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"suggestbox/pkg/api/handlers"
	"suggestbox/pkg/browse"
	"suggestbox/pkg/config"
	"suggestbox/pkg/session"
)

// NewRouter builds the /v1 API router. Operational endpoints (health,
// metrics, docs) are mounted by the app alongside this router.
func NewRouter(cfg *config.Config, sessions *session.Manager, browser *browse.Manager) *mux.Router {
	handlers.Configure(cfg, sessions, browser)

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterSuggestions(v1)
	handlers.RegisterSessions(v1)
	handlers.RegisterBrowse(v1)
	handlers.RegisterAdmin(v1)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})
	return r
}
