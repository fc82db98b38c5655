package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/cram/internal/collection"
	"github.com/hpungsan/cram/internal/config"
	"github.com/hpungsan/cram/internal/ops"
)

func setupTest(t *testing.T) (*ops.Runtime, http.Handler) {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()

	coll, err := collection.Open(tmpDir, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { coll.Close() })

	rt := ops.NewRuntime(coll, cfg, tmpDir)
	return rt, NewRouter(rt, "test")
}

// seedDeck imports two new cards, one of them marked, into "Spanish" and returns the deck id.
func seedDeck(t *testing.T, rt *ops.Runtime) string {
	t.Helper()
	path := filepath.Join(rt.ImportsDir(), "seed.jsonl")
	data := `{"deck": "Spanish", "state": "new"}` + "\n" + `{"deck": "Spanish", "state": "new", "tags": ["marked"]}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	out, err := ops.ImportCards(context.Background(), rt, ops.ImportInput{Path: path})
	require.NoError(t, err)
	require.Equal(t, 2, out.Imported)

	d, err := rt.Coll.DeckByName(context.Background(), "Spanish")
	require.NoError(t, err)
	return d.ID
}

func doRequest(h http.Handler, method, target string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var jsonAccept = map[string]string{"Accept": "application/json"}

func TestRootRedirects(t *testing.T) {
	_, h := setupTest(t)

	rec := doRequest(h, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/decks", rec.Header().Get("Location"))
}

func TestSecurityHeaders(t *testing.T) {
	_, h := setupTest(t)

	rec := doRequest(h, http.MethodGet, "/decks", nil, nil)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	require.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestHandleDecks(t *testing.T) {
	rt, h := setupTest(t)
	seedDeck(t, rt)

	rec := doRequest(h, http.MethodGet, "/decks", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "Spanish")
	require.Contains(t, rec.Body.String(), "<title>Decks · cram</title>")

	rec = doRequest(h, http.MethodGet, "/decks", nil, jsonAccept)
	require.Equal(t, http.StatusOK, rec.Code)
	var out ops.ListDecksOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, 1, out.Total)
}

func TestHandleDecks_HTMXRendersContentOnly(t *testing.T) {
	_, h := setupTest(t)

	rec := doRequest(h, http.MethodGet, "/decks", nil, map[string]string{"HX-Request": "true"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
	require.Contains(t, rec.Body.String(), "No decks yet.")
}

func TestHandleCreateDeck(t *testing.T) {
	_, h := setupTest(t)

	rec := doRequest(h, http.MethodPost, "/decks", url.Values{"name": {"French"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/decks/"))

	rec = doRequest(h, http.MethodPost, "/decks", url.Values{"name": {"french"}}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "NAME_ALREADY_EXISTS")

	rec = doRequest(h, http.MethodPost, "/decks", url.Values{"name": {"German"}}, jsonAccept)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out ops.CreateDeckOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "German", out.Name)
}

func TestHandleDeck(t *testing.T) {
	rt, h := setupTest(t)
	id := seedDeck(t, rt)

	rec := doRequest(h, http.MethodGet, "/decks/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<strong>2</strong> new")
	require.Contains(t, body, `value="extend_new"`)
	require.Contains(t, body, `value="review_marked"`)
	require.NotContains(t, body, `value="extend_review"`, "nothing is due")
	require.Contains(t, body, `name="tags"`)
	require.Contains(t, body, `name="preview_delay"`)
	require.Contains(t, body, "<p>", "option help is rendered from markdown")
}

func TestHandleDeck_NotFound(t *testing.T) {
	_, h := setupTest(t)

	rec := doRequest(h, http.MethodGet, "/decks/01MISSING", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = doRequest(h, http.MethodGet, "/decks/01MISSING", nil, jsonAccept)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var payload map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "NOT_FOUND", payload["error"]["code"])
	require.Equal(t, false, payload["error"]["retryable"])
}

func TestHandleStudy(t *testing.T) {
	rt, h := setupTest(t)
	id := seedDeck(t, rt)

	rec := doRequest(h, http.MethodPost, "/decks/"+id+"/study",
		url.Values{"option": {"extend_new"}, "value": {"5"}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/session", rec.Header().Get("Location"))

	rec = doRequest(h, http.MethodGet, "/session", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `deck:&#34;Spanish&#34; is:new`)
	require.Contains(t, body, "<dd>5</dd>")

	rec = doRequest(h, http.MethodPost, "/decks/"+id+"/study",
		url.Values{"option": {"review_by_tag"}, "tags": {"verbs, nouns"}}, jsonAccept)
	require.Equal(t, http.StatusOK, rec.Code, "resubmitting reuses the session")
	var out ops.SubmitOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.False(t, out.Created)
	require.Equal(t, `deck:"Spanish" (tag:verbs or tag:nouns)`, out.Config.Terms[0].Query)
}

func TestHandleStudy_Preview(t *testing.T) {
	rt, h := setupTest(t)
	id := seedDeck(t, rt)

	rec := doRequest(h, http.MethodPost, "/decks/"+id+"/study",
		url.Values{"option": {"preview_new"}, "preview_hard_secs": {"120"}, "preview_delay": {""}}, jsonAccept)
	require.Equal(t, http.StatusCreated, rec.Code)

	var out ops.SubmitOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.False(t, out.Config.Resched)
	require.Equal(t, 120, out.Config.HardSecs)
	require.Equal(t, 10, out.Config.Delay)
	require.Equal(t, 60, out.Config.AgainSecs)
}

func TestHandleStudy_Errors(t *testing.T) {
	rt, h := setupTest(t)
	id := seedDeck(t, rt)

	tests := []struct {
		name   string
		form   url.Values
		status int
		code   string
	}{
		{"unknown option", url.Values{"option": {"everything"}}, http.StatusBadRequest, "UNKNOWN_OPTION"},
		{"non-numeric value", url.Values{"option": {"study_ahead"}, "value": {"x"}}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"zero value", url.Values{"option": {"study_ahead"}, "value": {"0"}}, http.StatusBadRequest, "INVALID_PARAMETER"},
		{"nothing due", url.Values{"option": {"extend_review"}}, http.StatusConflict, "NOTHING_TO_EXTEND"},
		{"tag option without tags", url.Values{"option": {"review_by_tag"}}, http.StatusBadRequest, "INVALID_PARAMETER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPost, "/decks/"+id+"/study", tt.form, jsonAccept)
			require.Equal(t, tt.status, rec.Code)
			var payload map[string]map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
			require.Equal(t, tt.code, payload["error"]["code"])
		})
	}

	rec := doRequest(h, http.MethodGet, "/session", nil, jsonAccept)
	var session ops.SessionOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.False(t, session.Exists, "failed submits leave no session behind")
}

func TestHandleSession_Empty(t *testing.T) {
	_, h := setupTest(t)

	rec := doRequest(h, http.MethodGet, "/session", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No custom study session")
}

func TestHandleSession_Unavailable(t *testing.T) {
	rt, h := setupTest(t)
	require.NoError(t, rt.Coll.Close())

	rec := doRequest(h, http.MethodGet, "/session", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "SCHEDULER_UNAVAILABLE")
}

func TestStaticFiles(t *testing.T) {
	_, h := setupTest(t)

	rec := doRequest(h, http.MethodGet, "/static/style.css", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "--accent")
}

func TestParseTags(t *testing.T) {
	require.Equal(t, []string{"verbs", "nouns", "adj"}, parseTags(" verbs, nouns adj,, "))
	require.Empty(t, parseTags(""))
}

func TestRenderMarkdown(t *testing.T) {
	got := string(renderMarkdown("Add **more** cards"))
	require.Contains(t, got, "<strong>more</strong>")
}

func TestFormatTime(t *testing.T) {
	require.Equal(t, "1970-01-01 00:00", formatTime(0))
}
