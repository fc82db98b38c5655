package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
	"github.com/hpungsan/cram/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	rt       *ops.Runtime
	renderer *Renderer
}

// HandleDecks handles GET /decks: list regular decks.
func (h *Handlers) HandleDecks(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListDecks(r.Context(), h.rt, ops.ListDecksInput{
		IncludeFiltered: parseBoolParam(r, "include_filtered"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "decks", DecksPageData{
		PageData: PageData{
			Title:   "Decks",
			Version: h.renderer.version,
			Nav:     "decks",
		},
		Items: result.Items,
	})
}

// HandleCreateDeck handles POST /decks: create a regular deck.
func (h *Handlers) HandleCreateDeck(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	result, err := ops.CreateDeck(r.Context(), h.rt, ops.CreateDeckInput{Name: r.FormValue("name")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, result)
		return
	}

	http.Redirect(w, r, "/decks/"+url.PathEscape(result.ID), http.StatusSeeOther)
}

// HandleDeck handles GET /decks/{id}: show counts and the offered study options.
func (h *Handlers) HandleDeck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := ops.ListOptions(r.Context(), h.rt, ops.ListOptionsInput{DeckID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	views := make([]OptionView, 0, len(result.Options))
	for _, info := range result.Options {
		views = append(views, OptionView{OptionInfo: info, HelpHTML: renderMarkdown(info.Help)})
	}

	h.renderer.renderPage(w, r, "deck", DeckPageData{
		PageData: PageData{
			Title:   result.Deck.Name,
			Version: h.renderer.version,
			Nav:     "decks",
		},
		Deck:    result.Deck,
		Counts:  result.Counts,
		Options: views,
		Preview: h.rt.Study.Builder().Defaults().Preview,
	})
}

// HandleStudy handles POST /decks/{id}/study: build the custom study session.
func (h *Handlers) HandleStudy(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	input := ops.SubmitInput{
		DeckID: chi.URLParam(r, "id"),
		Option: r.FormValue("option"),
		Tags:   parseTags(r.FormValue("tags")),
	}

	value, err := formInt(r, "value")
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	input.Value = value

	preview, err := h.formPreview(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	input.Preview = preview

	result, err := ops.Submit(r.Context(), h.rt, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		renderJSON(w, status, result)
		return
	}

	http.Redirect(w, r, "/session", http.StatusSeeOther)
}

// HandleSession handles GET /session: show the current custom study session.
func (h *Handlers) HandleSession(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Session(r.Context(), h.rt)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	label := ""
	if result.Exists && result.Option.Valid() {
		label = result.Option.Label()
	}

	h.renderer.renderPage(w, r, "session", SessionPageData{
		PageData: PageData{
			Title:   "Custom study session",
			Version: h.renderer.version,
			Nav:     "session",
		},
		Session: result,
		Label:   label,
	})
}

// formPreview reads the preview timing fields. It returns nil when none are set;
// fields left empty keep the configured default.
func (h *Handlers) formPreview(r *http.Request) (*deck.Preview, error) {
	fields := []string{"preview_delay", "preview_again_secs", "preview_hard_secs", "preview_good_secs"}
	set := false
	for _, f := range fields {
		if strings.TrimSpace(r.FormValue(f)) != "" {
			set = true
		}
	}
	if !set {
		return nil, nil
	}

	p := h.rt.Study.Builder().Defaults().Preview
	targets := []*int{&p.Delay, &p.AgainSecs, &p.HardSecs, &p.GoodSecs}
	for i, f := range fields {
		v, err := formInt(r, f)
		if err != nil {
			return nil, err
		}
		if v != nil {
			*targets[i] = *v
		}
	}
	return &p, nil
}

// formInt parses an optional integer form field.
func formInt(r *http.Request, name string) (*int, error) {
	s := strings.TrimSpace(r.FormValue(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.NewInvalidRequest(name + " must be an integer")
	}
	return &v, nil
}

// parseTags splits a tag field on commas and whitespace.
func parseTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
