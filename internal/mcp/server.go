package mcp

import (
	"log"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/cram/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"study", "deck", "card"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"study_options": {
		def:     optionsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleOptions },
	},
	"study_submit": {
		def:     submitToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSubmit },
	},
	"study_session": {
		def:     sessionToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSession },
	},
	"deck_list": {
		def:     deckListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeckList },
	},
	"deck_create": {
		def:     deckCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDeckCreate },
	},
	"card_import": {
		def:     cardImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCardImport },
	},
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "study_submit" → "study").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)
	return tools
}

// NewServer creates a new MCP server with the study tools registered.
// Tools listed in DisabledTools or belonging to DisabledTypes are excluded
// from registration; unknown names are logged and ignored.
func NewServer(rt *ops.Runtime, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"cram",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(rt)
	cfg := rt.Config

	if unknown := ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Printf("ignoring unknown disabled_types: %s", strings.Join(unknown, ", "))
	}
	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Printf("ignoring unknown disabled_tools: %s", strings.Join(unknown, ", "))
	}

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(rt *ops.Runtime, version string) error {
	return server.ServeStdio(NewServer(rt, version))
}
