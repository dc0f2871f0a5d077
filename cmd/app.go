// Package cmd implements the CLI application to plan a household retirement.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/retirement/config"
	"github.com/etnz/retirement/date"
	"github.com/etnz/retirement/renderer"
	"github.com/etnz/retirement/store"
	"github.com/etnz/retirement/telemetry"
	"github.com/google/subcommands"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&membersCmd{}, "members")
	c.Register(&addMemberCmd{}, "members")
	c.Register(&updateMemberCmd{}, "members")
	c.Register(&deleteMemberCmd{}, "members")

	c.Register(&fundsCmd{}, "funds")
	c.Register(&fundCmd{}, "funds")
	c.Register(&addFundCmd{}, "funds")
	c.Register(&updateFundCmd{}, "funds")
	c.Register(&deleteFundCmd{}, "funds")
	c.Register(&overrideCmd{}, "funds")

	c.Register(&projectionCmd{}, "household")
	c.Register(&chartCmd{}, "household")
	c.Register(&watchCmd{}, "household")
	c.Register(&syncCmd{}, "household")

	c.Register(&topicCmd{}, "documentation")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var backendURL = flag.String("backend", "", "Retirement service base URL. Overrides RETIREMENT_BACKEND_API_URL.")
var userID = flag.String("user", "", "Household user id. Overrides RETIREMENT_USER_ID.")
var snapshotPath = flag.String("snapshot", "", "Path to the local snapshot database. Overrides RETIREMENT_SNAPSHOT_PATH.")
var offline = flag.Bool("offline", false, "Ignore the configured backend and work on the local snapshot only.")
var rawMarkdown = flag.Bool("raw", false, "Print reports as plain markdown, without terminal rendering.")
var verbose = flag.Bool("v", false, "Log every backend call.")

// cfg is the configuration used by all subcommands, see Setup.
var cfg config.Config

// stdout is where reports are printed.
var stdout io.Writer = os.Stdout

// Setup loads the configuration and applies the global flags on it.
// It starts tracing when an endpoint is configured, the returned function flushes it.
func Setup(ctx context.Context) (shutdown func(context.Context) error, err error) {
	cfg, err = config.Load()
	if err != nil {
		return nil, err
	}
	applyFlags(&cfg)
	return telemetry.Setup(ctx, cfg.OtelEndpoint)
}

func applyFlags(c *config.Config) {
	if *backendURL != "" {
		c.BackendURL = *backendURL
	}
	if *offline {
		c.BackendURL = ""
	}
	if *userID != "" {
		c.UserID = *userID
	}
	if *snapshotPath != "" {
		c.SnapshotPath = *snapshotPath
	}
	if *verbose {
		c.Verbose = true
	}
}

// OpenStore opens the household store and fetches both collections.
func OpenStore(ctx context.Context) (*store.Store, error) {
	var opts []store.Option
	if cfg.Today != "" {
		today, err := date.Parse(cfg.Today)
		if err != nil {
			return nil, fmt.Errorf("invalid RETIREMENT_TODAY: %w", err)
		}
		opts = append(opts, store.WithClock(func() date.Date { return today }))
	}
	if cfg.Offline() && cfg.SnapshotPath == "" {
		log.Println("warning, no backend and no snapshot configured, changes will be lost on exit")
	}
	s, err := store.Open(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	s.Fetch(ctx)
	return s, nil
}

// closeStore closes s and reports a failure on stderr.
func closeStore(s *store.Store) {
	if err := s.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing the store: %v\n", err)
	}
}

// status returns the markdown status section of s.
func status(s *store.Store) string {
	m, f := s.Unsynced()
	var b strings.Builder
	renderer.RenderStatus(&b, renderer.Status{
		Offline:         s.Offline(),
		Error:           s.ErrorMessage(),
		MembersUnsynced: m,
		FundsUnsynced:   f,
	})
	return b.String()
}

// printMarkdown renders md for the terminal, or prints it as is with -raw.
func printMarkdown(md string) {
	if *rawMarkdown {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		log.Printf("cannot render markdown, printing it as is: %v", err)
		out = md
	}
	fmt.Fprint(stdout, out)
}

// failure prints the store's last error and returns the failure status.
func failure(s *store.Store, what string) subcommands.ExitStatus {
	msg := s.ErrorMessage()
	if msg == "" {
		msg = "unknown error"
	}
	fmt.Fprintf(os.Stderr, "Error: cannot %s: %s\n", what, msg)
	return subcommands.ExitFailure
}
