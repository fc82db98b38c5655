package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var optionsToolDef = mcp.NewTool("study_options",
	mcp.WithDescription("List the custom study options offered for a deck, in priority order, "+
		"together with the deck's new, due and marked counts. Address the deck by deck_id or deck name."),
	mcp.WithString("deck_id", mcp.Description("Deck id")),
	mcp.WithString("deck", mcp.Description("Deck name (case-insensitive)")),
)

var submitToolDef = mcp.NewTool("study_submit",
	mcp.WithDescription("Create or replace the custom study session for a deck. "+
		"Only one session exists at a time; submitting again rebuilds it in place."),
	mcp.WithString("deck_id", mcp.Description("Deck id")),
	mcp.WithString("deck", mcp.Description("Deck name (case-insensitive)")),
	mcp.WithString("option",
		mcp.Required(),
		mcp.Description("Study option"),
		mcp.Enum("extend_new", "extend_review", "review_forgotten", "study_ahead",
			"preview_new", "review_by_tag", "review_marked"),
	),
	mcp.WithNumber("value",
		mcp.Description("Count or number of days for the option; the option's default when omitted"),
		mcp.Min(1),
	),
	mcp.WithArray("tags",
		mcp.Description("Tags to review (review_by_tag only); cards with any of the tags are included"),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithObject("preview",
		mcp.Description("Preview step timing in seconds (preview_new only)"),
		mcp.Properties(map[string]any{
			"delay":      map[string]any{"type": "integer", "minimum": 0},
			"again_secs": map[string]any{"type": "integer", "minimum": 0},
			"hard_secs":  map[string]any{"type": "integer", "minimum": 0},
			"good_secs":  map[string]any{"type": "integer", "minimum": 0},
		}),
	),
)

var sessionToolDef = mcp.NewTool("study_session",
	mcp.WithDescription("Show the current custom study session, if any."),
)

var deckListToolDef = mcp.NewTool("deck_list",
	mcp.WithDescription("List decks ordered by name."),
	mcp.WithBoolean("include_filtered", mcp.Description("Include filtered decks such as the custom study session")),
)

var deckCreateToolDef = mcp.NewTool("deck_create",
	mcp.WithDescription("Create a regular deck. Use \"::\" in the name for subdecks."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Deck name")),
)

var cardImportToolDef = mcp.NewTool("card_import",
	mcp.WithDescription("Import cards from a JSONL file in the imports directory. Missing decks are created."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to a .jsonl file")),
	mcp.WithString("mode",
		mcp.Description("error: import nothing if any line is bad (default); skip: import the good lines"),
		mcp.Enum("error", "skip"),
	),
)
