package logging

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Format selects the log line encoding.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Setup initializes the global slog logger using charmbracelet/log as the backend.
// In auto mode a terminal gets the colored text format and anything else gets JSON.
func Setup(verbose bool, format Format) {
	slog.SetDefault(New(os.Stderr, verbose, format, isTerminal()))
}

// New builds a logger writing to w. tty reports whether w is an interactive terminal.
func New(w io.Writer, verbose bool, format Format, tty bool) *slog.Logger {
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
	})

	if verbose {
		handler.SetLevel(charmlog.DebugLevel)
	} else {
		handler.SetLevel(charmlog.InfoLevel)
	}

	switch format {
	case FormatJSON:
		handler.SetFormatter(charmlog.JSONFormatter)
	case FormatText:
		handler.SetFormatter(charmlog.TextFormatter)
	default:
		if !tty {
			handler.SetFormatter(charmlog.JSONFormatter)
		}
	}

	return slog.New(handler)
}

// IsInteractive reports whether both stdin and stdout are terminals, which is
// what the prompts need to run.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
