package main

import (
	"fmt"
	"os"

	"github.com/hpungsan/cram/internal/collection"
	"github.com/hpungsan/cram/internal/config"
	"github.com/hpungsan/cram/internal/mcp"
	"github.com/hpungsan/cram/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"decks": true, "deck-create": true,
	"options": true, "study": true, "session": true,
	"import": true, "ui": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
    ___ _ __ __ _ _ __ ___
   / __| '__/ _' | '_ ' _ \
  | (__| | | (_| | | | | | |
   \___|_|  \__,_|_| |_| |_|

  Custom study sessions for your flashcard collection

  Usage: cram <command> [options]
         cram --help

  MCP server mode requires piped input.`)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before opening the collection
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	coll, err := collection.Open(baseDir, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open collection: %v\n", err)
		os.Exit(1)
	}
	defer coll.Close()

	rt := ops.NewRuntime(coll, cfg, baseDir)

	if isCLIMode() {
		app := newCLIApp(rt)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			coll.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'cram --help' for usage.\n")
		coll.Close()
		os.Exit(1)
	}

	if err := mcp.Run(rt, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		coll.Close()
		os.Exit(1)
	}
}
