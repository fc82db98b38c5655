package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
	"github.com/hpungsan/cram/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	rt *ops.Runtime
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(rt *ops.Runtime) *Handlers {
	return &Handlers{rt: rt}
}

// Request types for each tool

// OptionsRequest represents the arguments for study_options.
type OptionsRequest struct {
	DeckID string `json:"deck_id,omitempty"`
	Deck   string `json:"deck,omitempty"`
}

// SubmitRequest represents the arguments for study_submit.
type SubmitRequest struct {
	DeckID  string          `json:"deck_id,omitempty"`
	Deck    string          `json:"deck,omitempty"`
	Option  string          `json:"option"`
	Value   *int            `json:"value,omitempty"`
	Tags    []string        `json:"tags,omitempty"`
	Preview *PreviewRequest `json:"preview,omitempty"`
}

// PreviewRequest overrides preview timing. Omitted fields keep the configured default.
type PreviewRequest struct {
	Delay     *int `json:"delay,omitempty"`
	AgainSecs *int `json:"again_secs,omitempty"`
	HardSecs  *int `json:"hard_secs,omitempty"`
	GoodSecs  *int `json:"good_secs,omitempty"`
}

// DeckListRequest represents the arguments for deck_list.
type DeckListRequest struct {
	IncludeFiltered bool `json:"include_filtered,omitempty"`
}

// DeckCreateRequest represents the arguments for deck_create.
type DeckCreateRequest struct {
	Name string `json:"name"`
}

// ImportRequest represents the arguments for card_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleOptions handles the study_options tool call.
func (h *Handlers) HandleOptions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OptionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListOptions(ctx, h.rt, ops.ListOptionsInput{
		DeckID: input.DeckID,
		Deck:   input.Deck,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSubmit handles the study_submit tool call.
func (h *Handlers) HandleSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SubmitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Submit(ctx, h.rt, ops.SubmitInput{
		DeckID:  input.DeckID,
		Deck:    input.Deck,
		Option:  input.Option,
		Value:   input.Value,
		Tags:    input.Tags,
		Preview: h.preview(input.Preview),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// preview fills omitted timing fields from the configured defaults.
func (h *Handlers) preview(p *PreviewRequest) *deck.Preview {
	if p == nil {
		return nil
	}
	out := h.rt.Study.Builder().Defaults().Preview
	if p.Delay != nil {
		out.Delay = *p.Delay
	}
	if p.AgainSecs != nil {
		out.AgainSecs = *p.AgainSecs
	}
	if p.HardSecs != nil {
		out.HardSecs = *p.HardSecs
	}
	if p.GoodSecs != nil {
		out.GoodSecs = *p.GoodSecs
	}
	return &out
}

// HandleSession handles the study_session tool call.
func (h *Handlers) HandleSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := decode[struct{}](req); err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Session(ctx, h.rt)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDeckList handles the deck_list tool call.
func (h *Handlers) HandleDeckList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeckListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListDecks(ctx, h.rt, ops.ListDecksInput{
		IncludeFiltered: input.IncludeFiltered,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDeckCreate handles the deck_create tool call.
func (h *Handlers) HandleDeckCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeckCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CreateDeck(ctx, h.rt, ops.CreateDeckInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCardImport handles the card_import tool call.
func (h *Handlers) HandleCardImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ImportCards(ctx, h.rt, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var cramErr *errors.CramError
	if stderrors.As(err, &cramErr) {
		msg := cramErr.Message
		if err != error(cramErr) && cramErr.Code != errors.ErrInternal {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":      cramErr.Code,
			"message":   msg,
			"status":    cramErr.Status,
			"retryable": errors.IsRetryable(cramErr),
		}
		if cramErr.Code != errors.ErrInternal && cramErr.Details != nil {
			errorObj["details"] = cramErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
