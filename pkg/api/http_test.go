package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"suggestbox/pkg/auth"
	"suggestbox/pkg/browse"
	"suggestbox/pkg/config"
	"suggestbox/pkg/session"
	"suggestbox/pkg/storage"
	"suggestbox/pkg/store"
)

// setupServer stands up the full stack: store over a temp YAML file, both
// managers, the v1 router and the identity gate.
func setupServer(t *testing.T, opts store.Options) *httptest.Server {
	t.Helper()
	b, err := storage.OpenYAMLFile(filepath.Join(t.TempDir(), "suggestions.yml"))
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	if err := store.Open(b, opts); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Suggestions.MaxPerAuthor = opts.MaxPerAuthor
	cfg.Suggestions.AllowSelfVote = opts.AllowSelfVote
	cfg.Security.RateLimit.RPS = 10000
	cfg.Security.RateLimit.Burst = 10000

	sessions := session.NewManager(session.Config{
		Timeout:           time.Minute,
		MaxTitleLen:       cfg.Suggestions.MaxTitleLength,
		MaxDescriptionLen: cfg.Suggestions.MaxDescriptionLength,
	})
	browser := browse.NewManager(cfg.Suggestions.PageSize)

	handler := auth.GateMiddleware(auth.SecConfig{
		RPS:        cfg.Security.RateLimit.RPS,
		Burst:      cfg.Security.RateLimit.Burst,
		AdminRoles: cfg.Security.AdminRoles,
	})(NewRouter(cfg, sessions, browser))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// call issues a request with the host platform's identity headers and
// decodes the JSON response into out when it is non-nil.
func call(t *testing.T, srv *httptest.Server, method, path, identity, role string, body any, out any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if identity != "" {
		req.Header.Set("X-Identity", identity)
	}
	if role != "" {
		req.Header.Set("X-Role-Name", role)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return res
}

func TestIdentityRequired(t *testing.T) {
	srv := setupServer(t, store.Options{})
	res := call(t, srv, "GET", "/v1/suggestions", "", "", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401", res.StatusCode)
	}
}

func TestCreateAndFetch(t *testing.T) {
	srv := setupServer(t, store.Options{})

	var created struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		AuthorID string `json:"authorId"`
	}
	res := call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{
		"title": "more benches", "description": "near spawn",
	}, &created)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status: got %d", res.StatusCode)
	}
	if created.ID != "s-001" || created.AuthorID != "u1" {
		t.Fatalf("created: %+v", created)
	}

	var got struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	res = call(t, srv, "GET", "/v1/suggestions/s-001", "u2", "", nil, &got)
	if res.StatusCode != http.StatusOK || got.Title != "more benches" {
		t.Fatalf("fetch: %d %+v", res.StatusCode, got)
	}

	res = call(t, srv, "GET", "/v1/suggestions/s-999", "u2", "", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("missing id status: got %d", res.StatusCode)
	}
}

func TestCreateValidation(t *testing.T) {
	srv := setupServer(t, store.Options{})

	res := call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{
		"title": "", "description": "d",
	}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("empty title status: got %d", res.StatusCode)
	}

	long := make([]byte, 33)
	for i := range long {
		long[i] = 'x'
	}
	res = call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{
		"title": string(long), "description": "d",
	}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("long title status: got %d", res.StatusCode)
	}
}

func TestQuotaOverHTTP(t *testing.T) {
	srv := setupServer(t, store.Options{MaxPerAuthor: 1})

	body := map[string]string{"title": "t", "description": "d"}
	if res := call(t, srv, "POST", "/v1/suggestions", "u1", "", body, nil); res.StatusCode != http.StatusCreated {
		t.Fatalf("first create: got %d", res.StatusCode)
	}
	if res := call(t, srv, "POST", "/v1/suggestions", "u1", "", body, nil); res.StatusCode != http.StatusConflict {
		t.Fatalf("over quota: got %d, want 409", res.StatusCode)
	}
}

func TestVoteLifecycle(t *testing.T) {
	srv := setupServer(t, store.Options{})
	call(t, srv, "POST", "/v1/suggestions", "author", "", map[string]string{"title": "t", "description": "d"}, nil)

	// self-vote rejected by default policy
	res := call(t, srv, "POST", "/v1/suggestions/s-001/vote", "author", "", map[string]string{"type": "UPVOTE"}, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("self-vote: got %d, want 403", res.StatusCode)
	}

	var vr struct {
		Result     string `json:"result"`
		Suggestion struct {
			Upvotes int    `json:"upvotes"`
			MyVote  string `json:"myVote"`
		} `json:"suggestion"`
	}
	res = call(t, srv, "POST", "/v1/suggestions/s-001/vote", "p1", "", map[string]string{"type": "UPVOTE"}, &vr)
	if res.StatusCode != http.StatusOK || vr.Result != "upvoted" || vr.Suggestion.Upvotes != 1 {
		t.Fatalf("vote: %d %+v", res.StatusCode, vr)
	}
	if vr.Suggestion.MyVote != "UPVOTE" {
		t.Fatalf("myVote: %+v", vr.Suggestion)
	}

	// same vote again toggles off
	res = call(t, srv, "POST", "/v1/suggestions/s-001/vote", "p1", "", map[string]string{"type": "UPVOTE"}, &vr)
	if vr.Result != "removed" || vr.Suggestion.Upvotes != 0 {
		t.Fatalf("toggle off: %+v", vr)
	}

	// bad vote type
	res = call(t, srv, "POST", "/v1/suggestions/s-001/vote", "p1", "", map[string]string{"type": "SIDEWAYS"}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad type: got %d", res.StatusCode)
	}
}

func TestEditPermissions(t *testing.T) {
	srv := setupServer(t, store.Options{})
	call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{"title": "t", "description": "d"}, nil)

	edit := map[string]string{"title": "t2", "description": "d2"}

	// stranger cannot edit
	res := call(t, srv, "PUT", "/v1/suggestions/s-001", "u2", "", edit, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger edit: got %d", res.StatusCode)
	}

	// owner can, until staff responds
	res = call(t, srv, "PUT", "/v1/suggestions/s-001", "u1", "", edit, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("owner edit: got %d", res.StatusCode)
	}
	res = call(t, srv, "POST", "/v1/suggestions/s-001/respond", "staff", "admin", map[string]string{"response": "done"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("respond: got %d", res.StatusCode)
	}
	res = call(t, srv, "PUT", "/v1/suggestions/s-001", "u1", "", edit, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("owner edit after response: got %d, want 403", res.StatusCode)
	}

	// staff can still edit
	res = call(t, srv, "PUT", "/v1/suggestions/s-001", "staff", "admin", edit, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("staff edit: got %d", res.StatusCode)
	}
}

func TestRespondRequiresStaff(t *testing.T) {
	srv := setupServer(t, store.Options{})
	call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{"title": "t", "description": "d"}, nil)

	res := call(t, srv, "POST", "/v1/suggestions/s-001/respond", "u2", "", map[string]string{"response": "no"}, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("non-staff respond: got %d", res.StatusCode)
	}
	// an unknown role name is not staff either
	res = call(t, srv, "POST", "/v1/suggestions/s-001/respond", "u2", "builder", map[string]string{"response": "no"}, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong role respond: got %d", res.StatusCode)
	}
}

func TestDeleteTwoClick(t *testing.T) {
	srv := setupServer(t, store.Options{})
	call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{"title": "t", "description": "d"}, nil)

	res := call(t, srv, "DELETE", "/v1/suggestions/s-001", "u1", "", nil, nil)
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("first delete: got %d, want 202", res.StatusCode)
	}
	// target still exists
	if res := call(t, srv, "GET", "/v1/suggestions/s-001", "u1", "", nil, nil); res.StatusCode != http.StatusOK {
		t.Fatalf("target gone after first click: %d", res.StatusCode)
	}
	res = call(t, srv, "DELETE", "/v1/suggestions/s-001", "u1", "", nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("second delete: got %d, want 204", res.StatusCode)
	}
	if res := call(t, srv, "GET", "/v1/suggestions/s-001", "u1", "", nil, nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("target alive after confirm: %d", res.StatusCode)
	}
}

func TestDeletePermissions(t *testing.T) {
	srv := setupServer(t, store.Options{})
	call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{"title": "t", "description": "d"}, nil)

	if res := call(t, srv, "DELETE", "/v1/suggestions/s-001", "u2", "", nil, nil); res.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger delete: got %d", res.StatusCode)
	}
	// staff may, with the same two-click rule
	if res := call(t, srv, "DELETE", "/v1/suggestions/s-001", "staff", "admin", nil, nil); res.StatusCode != http.StatusAccepted {
		t.Fatalf("staff first delete: got %d", res.StatusCode)
	}
	if res := call(t, srv, "DELETE", "/v1/suggestions/s-001", "staff", "admin", nil, nil); res.StatusCode != http.StatusNoContent {
		t.Fatalf("staff second delete: got %d", res.StatusCode)
	}
}

func TestListPagination(t *testing.T) {
	srv := setupServer(t, store.Options{})
	for i := 0; i < 3; i++ {
		call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{"title": "t", "description": "d"}, nil)
	}

	var page struct {
		Page      int `json:"page"`
		PageCount int `json:"pageCount"`
		Total     int `json:"total"`
		Items     []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	res := call(t, srv, "GET", "/v1/suggestions?sort=recent&page=99", "u2", "", nil, &page)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list: got %d", res.StatusCode)
	}
	if page.Page != 1 || page.PageCount != 1 || page.Total != 3 || len(page.Items) != 3 {
		t.Fatalf("page: %+v", page)
	}

	res = call(t, srv, "GET", "/v1/suggestions?sort=sideways", "u2", "", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad sort: got %d", res.StatusCode)
	}
}

func TestTextSessionOverHTTP(t *testing.T) {
	srv := setupServer(t, store.Options{})

	var start struct {
		Reply string `json:"reply"`
	}
	res := call(t, srv, "POST", "/v1/sessions/create", "u1", "", nil, &start)
	if res.StatusCode != http.StatusOK || start.Reply == "" {
		t.Fatalf("start: %d %+v", res.StatusCode, start)
	}

	var in struct {
		Consumed bool   `json:"consumed"`
		Reply    string `json:"reply"`
	}
	call(t, srv, "POST", "/v1/input", "u1", "", map[string]string{"text": "a fine title"}, &in)
	if !in.Consumed {
		t.Fatalf("title not consumed: %+v", in)
	}
	call(t, srv, "POST", "/v1/input", "u1", "", map[string]string{"text": "a fine description"}, &in)
	if !in.Consumed {
		t.Fatalf("description not consumed: %+v", in)
	}
	if res := call(t, srv, "GET", "/v1/suggestions/s-001", "u1", "", nil, nil); res.StatusCode != http.StatusOK {
		t.Fatalf("suggestion not created via session")
	}

	// with no session open, text passes through
	call(t, srv, "POST", "/v1/input", "u1", "", map[string]string{"text": "hello chat"}, &in)
	if in.Consumed {
		t.Fatalf("text consumed without a session")
	}
}

func TestBrowseFlow(t *testing.T) {
	srv := setupServer(t, store.Options{})
	for i := 0; i < 2; i++ {
		call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{"title": "t", "description": "d"}, nil)
	}

	var page struct {
		Total int `json:"total"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	res := call(t, srv, "POST", "/v1/browse", "viewer", "", map[string]any{"view": "all"}, &page)
	if res.StatusCode != http.StatusOK || page.Total != 2 {
		t.Fatalf("open: %d %+v", res.StatusCode, page)
	}

	var sel struct {
		Suggestion *struct {
			ID string `json:"id"`
		} `json:"suggestion"`
	}
	call(t, srv, "POST", "/v1/browse/select", "viewer", "", map[string]int{"slot": 0}, &sel)
	if sel.Suggestion == nil || sel.Suggestion.ID != page.Items[0].ID {
		t.Fatalf("select: %+v", sel)
	}
	// out-of-range click resolves to null
	sel.Suggestion = nil
	call(t, srv, "POST", "/v1/browse/select", "viewer", "", map[string]int{"slot": 44}, &sel)
	if sel.Suggestion != nil {
		t.Fatalf("blank slot resolved: %+v", sel)
	}

	// navigate without a session conflicts
	res = call(t, srv, "POST", "/v1/browse/navigate", "stranger", "", map[string]int{"page": 1}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("navigate without session: got %d", res.StatusCode)
	}

	// admin view is gated
	res = call(t, srv, "POST", "/v1/browse", "viewer", "", map[string]any{"view": "admin"}, nil)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("admin view as user: got %d", res.StatusCode)
	}

	res = call(t, srv, "DELETE", "/v1/browse", "viewer", "", nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("close: got %d", res.StatusCode)
	}
}

func TestBrowseDeleteSlot(t *testing.T) {
	srv := setupServer(t, store.Options{})
	call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{"title": "t", "description": "d"}, nil)
	call(t, srv, "POST", "/v1/browse", "u1", "", map[string]any{"view": "all"}, nil)

	res := call(t, srv, "POST", "/v1/browse/delete", "u1", "", map[string]int{"slot": 0}, nil)
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("first click: got %d, want 202", res.StatusCode)
	}
	var out struct {
		Deleted string `json:"deleted"`
		Page    *struct {
			Total int `json:"total"`
		} `json:"page"`
	}
	res = call(t, srv, "POST", "/v1/browse/delete", "u1", "", map[string]int{"slot": 0}, &out)
	if res.StatusCode != http.StatusOK || out.Deleted != "s-001" {
		t.Fatalf("second click: %d %+v", res.StatusCode, out)
	}
	if out.Page == nil || out.Page.Total != 0 {
		t.Fatalf("page not re-rendered after delete: %+v", out.Page)
	}
}

func TestAdminStats(t *testing.T) {
	srv := setupServer(t, store.Options{})
	call(t, srv, "POST", "/v1/suggestions", "u1", "", map[string]string{"title": "t", "description": "d"}, nil)
	call(t, srv, "POST", "/v1/suggestions/s-001/vote", "p1", "", map[string]string{"type": "UPVOTE"}, nil)

	if res := call(t, srv, "GET", "/v1/admin/stats", "u1", "", nil, nil); res.StatusCode != http.StatusForbidden {
		t.Fatalf("stats as user: got %d", res.StatusCode)
	}

	var stats struct {
		Suggestions int `json:"suggestions"`
		Upvotes     int `json:"upvotes"`
		Authors     int `json:"authors"`
	}
	res := call(t, srv, "GET", "/v1/admin/stats", "staff", "admin", nil, &stats)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats as staff: got %d", res.StatusCode)
	}
	if stats.Suggestions != 1 || stats.Upvotes != 1 || stats.Authors != 1 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestDisconnectDropsState(t *testing.T) {
	srv := setupServer(t, store.Options{})
	call(t, srv, "POST", "/v1/sessions/create", "u1", "", nil, nil)
	res := call(t, srv, "POST", "/v1/disconnect", "u1", "", nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("disconnect: got %d", res.StatusCode)
	}
	var in struct {
		Consumed bool `json:"consumed"`
	}
	call(t, srv, "POST", "/v1/input", "u1", "", map[string]string{"text": "a title"}, &in)
	if in.Consumed {
		t.Fatalf("session survived disconnect")
	}
}
