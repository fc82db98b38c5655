package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
	"github.com/hpungsan/cram/internal/ops"
	"github.com/hpungsan/cram/internal/web"
)

// stdout is where command output is written. Tests replace it.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *ops.Runtime) *cli.App {
	app := &cli.App{
		Name:    "cram",
		Usage:   "Custom study sessions for a flashcard collection",
		Version: Version,
		Commands: []*cli.Command{
			decksCmd(rt),
			deckCreateCmd(rt),
			optionsCmd(rt),
			studyCmd(rt),
			sessionCmd(rt),
			importCmd(rt),
			uiCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// deckFlags address a deck by id or name.
func deckFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "deck", Aliases: []string{"d"}, Usage: "Deck name"},
		&cli.StringFlag{Name: "id", Usage: "Deck id"},
	}
}

// decksCmd creates the decks command.
func decksCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "decks",
		Usage: "List decks",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include filtered decks"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListDecks(c.Context, rt, ops.ListDecksInput{IncludeFiltered: c.Bool("all")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deckCreateCmd creates the deck-create command.
func deckCreateCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "deck-create",
		Usage:     "Create a regular deck",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			name := strings.Join(c.Args().Slice(), " ")
			output, err := ops.CreateDeck(c.Context, rt, ops.CreateDeckInput{Name: name})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// optionsCmd creates the options command.
func optionsCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "options",
		Usage: "Show the custom study options offered for a deck",
		Flags: deckFlags(),
		Action: func(c *cli.Context) error {
			output, err := ops.ListOptions(c.Context, rt, ops.ListOptionsInput{
				DeckID: c.String("id"),
				Deck:   c.String("deck"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// studyCmd creates the study command.
func studyCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "study",
		Usage: "Build the custom study session for a deck",
		Flags: append(deckFlags(),
			&cli.StringFlag{Name: "option", Aliases: []string{"o"}, Required: true,
				Usage: "extend_new|extend_review|review_forgotten|study_ahead|preview_new|review_by_tag|review_marked"},
			&cli.IntFlag{Name: "value", Aliases: []string{"n"}, Usage: "Count or days (option default when omitted)"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags (review_by_tag)"},
			&cli.IntFlag{Name: "preview-delay", Usage: "Preview delay in minutes (preview_new)"},
			&cli.IntFlag{Name: "preview-again", Usage: "Seconds until an Again card returns (preview_new)"},
			&cli.IntFlag{Name: "preview-hard", Usage: "Seconds until a Hard card returns (preview_new)"},
			&cli.IntFlag{Name: "preview-good", Usage: "Seconds until a Good card returns (preview_new)"},
		),
		Action: func(c *cli.Context) error {
			input := ops.SubmitInput{
				DeckID: c.String("id"),
				Deck:   c.String("deck"),
				Option: c.String("option"),
				Tags:   parseTags(c.String("tags")),
			}
			if c.IsSet("value") {
				v := c.Int("value")
				input.Value = &v
			}
			input.Preview = previewFromFlags(c, rt)

			output, err := ops.Submit(c.Context, rt, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// previewFromFlags returns nil when no preview flag is set. Unset flags keep the
// configured default.
func previewFromFlags(c *cli.Context, rt *ops.Runtime) *deck.Preview {
	names := []string{"preview-delay", "preview-again", "preview-hard", "preview-good"}
	set := false
	for _, n := range names {
		if c.IsSet(n) {
			set = true
		}
	}
	if !set {
		return nil
	}

	p := rt.Study.Builder().Defaults().Preview
	targets := []*int{&p.Delay, &p.AgainSecs, &p.HardSecs, &p.GoodSecs}
	for i, n := range names {
		if c.IsSet(n) {
			*targets[i] = c.Int(n)
		}
	}
	return &p
}

// sessionCmd creates the session command.
func sessionCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Show the current custom study session",
		Action: func(c *cli.Context) error {
			output, err := ops.Session(c.Context, rt)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import cards from a JSONL file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Bad line handling: error|skip"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			output, err := ops.ImportCards(c.Context, rt, ops.ImportInput{
				Path: c.Args().First(),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve the study web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind := rt.Config.WebBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := rt.Config.WebPort
			if c.IsSet("port") {
				port = c.Int("port")
			}
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest("port must be between 1 and 65535"))
			}
			return web.Run(web.NewServer(rt, Version, bind, port))
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.CramError
	if stderrors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
