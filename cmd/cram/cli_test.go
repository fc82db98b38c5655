package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/cram/internal/collection"
	"github.com/hpungsan/cram/internal/config"
	"github.com/hpungsan/cram/internal/ops"
)

// setupTestRuntime opens a collection in a temporary directory.
func setupTestRuntime(t *testing.T) *ops.Runtime {
	t.Helper()
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()

	coll, err := collection.Open(tmpDir, cfg)
	if err != nil {
		t.Fatalf("failed to open test collection: %v", err)
	}
	t.Cleanup(func() { coll.Close() })

	return ops.NewRuntime(coll, cfg, tmpDir)
}

// captureOutput redirects command output for the duration of a test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

// writeCards writes a JSONL card file into the imports directory.
func writeCards(t *testing.T, rt *ops.Runtime, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(rt.ImportsDir(), name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatalf("failed to write import file: %v", err)
	}
	return path
}

// seedCards imports two new cards (one marked) and one review card due today into "Spanish".
func seedCards(t *testing.T, rt *ops.Runtime) {
	t.Helper()
	path := writeCards(t, rt, "seed.jsonl",
		`{"deck": "Spanish", "state": "new"}`,
		`{"deck": "Spanish", "state": "new", "tags": ["marked"]}`,
		`{"deck": "Spanish", "state": "review", "ivl": 3}`,
	)
	out, err := ops.ImportCards(context.Background(), rt, ops.ImportInput{Path: path})
	if err != nil {
		t.Fatalf("failed to seed cards: %v", err)
	}
	if out.Imported != 3 {
		t.Fatalf("expected 3 imported, got %d", out.Imported)
	}
}

// TestParseTags tests the parseTags helper function.
func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single tag",
			input:    "verbs",
			expected: []string{"verbs"},
		},
		{
			name:     "multiple tags",
			input:    "verbs,nouns,adj",
			expected: []string{"verbs", "nouns", "adj"},
		},
		{
			name:     "tags with spaces",
			input:    " verbs , nouns ",
			expected: []string{"verbs", "nouns"},
		},
		{
			name:     "empty tags filtered",
			input:    "verbs,,nouns,",
			expected: []string{"verbs", "nouns"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseTags(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d tags, got %d", len(tt.expected), len(result))
				return
			}
			for i, tag := range result {
				if tag != tt.expected[i] {
					t.Errorf("expected tag[%d]=%q, got %q", i, tt.expected[i], tag)
				}
			}
		})
	}
}

// TestCLIDeckCreateAndList tests the deck-create and decks commands.
func TestCLIDeckCreateAndList(t *testing.T) {
	rt := setupTestRuntime(t)
	app := newCLIApp(rt)

	buf := captureOutput(t)
	if err := app.Run([]string{"cram", "deck-create", "Spanish", "Verbs"}); err != nil {
		t.Fatalf("deck-create failed: %v", err)
	}

	var created ops.CreateDeckOutput
	if err := json.Unmarshal(buf.Bytes(), &created); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if created.Name != "Spanish Verbs" {
		t.Errorf("expected name=Spanish Verbs, got %s", created.Name)
	}
	if created.ID == "" {
		t.Error("expected deck id")
	}

	buf.Reset()
	if err := app.Run([]string{"cram", "decks"}); err != nil {
		t.Fatalf("decks failed: %v", err)
	}

	var list ops.ListDecksOutput
	if err := json.Unmarshal(buf.Bytes(), &list); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if list.Total != 1 {
		t.Errorf("expected 1 deck, got %d", list.Total)
	}
}

// TestCLIOptions tests the options command.
func TestCLIOptions(t *testing.T) {
	rt := setupTestRuntime(t)
	seedCards(t, rt)
	app := newCLIApp(rt)

	buf := captureOutput(t)
	if err := app.Run([]string{"cram", "options", "--deck=Spanish"}); err != nil {
		t.Fatalf("options failed: %v", err)
	}

	var output ops.ListOptionsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Counts.New != 2 {
		t.Errorf("expected 2 new, got %d", output.Counts.New)
	}
	if len(output.Options) != 7 {
		t.Errorf("expected 7 options, got %d", len(output.Options))
	}
}

// TestCLIStudy tests the study and session commands.
func TestCLIStudy(t *testing.T) {
	rt := setupTestRuntime(t)
	seedCards(t, rt)
	app := newCLIApp(rt)
	buf := captureOutput(t)

	t.Run("tag session", func(t *testing.T) {
		buf.Reset()
		err := app.Run([]string{"cram", "study", "--deck=Spanish", "-o", "review_by_tag", "--tags=verbs,nouns"})
		if err != nil {
			t.Fatalf("study failed: %v", err)
		}

		var output ops.SubmitOutput
		if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if !output.Created {
			t.Error("expected session to be created")
		}
		want := `deck:"Spanish" (tag:verbs or tag:nouns)`
		if got := output.Config.Terms[0].Query; got != want {
			t.Errorf("expected query %q, got %q", want, got)
		}
	})

	t.Run("preview flags override defaults", func(t *testing.T) {
		buf.Reset()
		err := app.Run([]string{"cram", "study", "--deck=Spanish", "-o", "preview_new", "--value=2", "--preview-hard=120"})
		if err != nil {
			t.Fatalf("study failed: %v", err)
		}

		var output ops.SubmitOutput
		if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.Created {
			t.Error("expected existing session to be reused")
		}
		if output.Config.HardSecs != 120 {
			t.Errorf("expected hard=120, got %d", output.Config.HardSecs)
		}
		if output.Config.AgainSecs != 60 {
			t.Errorf("expected again default 60, got %d", output.Config.AgainSecs)
		}
		if output.Config.Resched {
			t.Error("expected preview session not to reschedule")
		}
	})

	t.Run("session shows the last build", func(t *testing.T) {
		buf.Reset()
		if err := app.Run([]string{"cram", "session"}); err != nil {
			t.Fatalf("session failed: %v", err)
		}

		var output ops.SessionOutput
		if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if !output.Exists {
			t.Fatal("expected session to exist")
		}
		if output.Option != "preview_new" {
			t.Errorf("expected option=preview_new, got %s", output.Option)
		}
	})
}

// TestCLIImport tests the import command.
func TestCLIImport(t *testing.T) {
	rt := setupTestRuntime(t)
	app := newCLIApp(rt)
	buf := captureOutput(t)

	path := writeCards(t, rt, "cards.jsonl",
		`{"deck": "French", "state": "new"}`,
		`not json`,
		`{"deck": "French", "state": "review", "ivl": 4, "due_in": 1}`,
	)

	if err := app.Run([]string{"cram", "import", path}); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var atomic ops.ImportOutput
	if err := json.Unmarshal(buf.Bytes(), &atomic); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if atomic.Imported != 0 {
		t.Errorf("expected nothing imported in error mode, got %d", atomic.Imported)
	}
	if len(atomic.Errors) != 1 || atomic.Errors[0].Line != 2 {
		t.Errorf("expected one error on line 2, got %+v", atomic.Errors)
	}

	buf.Reset()
	if err := app.Run([]string{"cram", "import", "--mode=skip", path}); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var skip ops.ImportOutput
	if err := json.Unmarshal(buf.Bytes(), &skip); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if skip.Imported != 2 || skip.Skipped != 1 {
		t.Errorf("expected imported=2 skipped=1, got imported=%d skipped=%d", skip.Imported, skip.Skipped)
	}
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	rt := setupTestRuntime(t)
	seedCards(t, rt)
	app := newCLIApp(rt)
	captureOutput(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown deck", []string{"cram", "options", "--deck=Nope"}, "[NOT_FOUND]"},
		{"unknown option", []string{"cram", "study", "--deck=Spanish", "-o", "everything"}, "[UNKNOWN_OPTION]"},
		{"zero value", []string{"cram", "study", "--deck=Spanish", "-o", "study_ahead", "--value=0"}, "[INVALID_PARAMETER]"},
		{"import without path", []string{"cram", "import"}, "[INVALID_REQUEST]"},
		{"import outside imports dir", []string{"cram", "import", "/etc/passwd.jsonl"}, "["},
		{"bad port", []string{"cram", "ui", "--port=0"}, "[INVALID_REQUEST]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// cli.Exit writes to stderr, so just verify the error is returned
			err := app.Run(tt.args)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"cram"}, expected: false},
		{name: "study command", args: []string{"cram", "study"}, expected: true},
		{name: "import command", args: []string{"cram", "import"}, expected: true},
		{name: "ui command", args: []string{"cram", "ui"}, expected: true},
		{name: "help flag", args: []string{"cram", "--help"}, expected: true},
		{name: "short version flag", args: []string{"cram", "-v"}, expected: true},
		{name: "unknown arg defaults to MCP", args: []string{"cram", "--unknown"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isCLIMode(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{name: "no args", args: []string{"cram"}, expected: false},
		{name: "help flag", args: []string{"cram", "--help"}, expected: true},
		{name: "short help flag", args: []string{"cram", "-h"}, expected: true},
		{name: "version flag", args: []string{"cram", "--version"}, expected: true},
		{name: "help subcommand", args: []string{"cram", "help"}, expected: true},
		{name: "study command is not help", args: []string{"cram", "study"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if result := isHelpOrVersion(); result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
