package cmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/etnz/retirement/chart"
	"github.com/etnz/retirement/renderer"
	"github.com/etnz/retirement/store"
	"github.com/google/subcommands"
	"github.com/robfig/cron/v3"
)

func printHousehold(s *store.Store) {
	report := renderer.NewHouseholdReport(s.Household(), s.Members(), s.Today(), currency())
	printMarkdown(renderer.RenderHousehold(report) + status(s))
}

type projectionCmd struct {
	json bool
}

func (*projectionCmd) Name() string     { return "projection" }
func (*projectionCmd) Synopsis() string { return "show the household projection" }
func (*projectionCmd) Usage() string {
	return `retire projection [-json]

  Shows the projected balance of every fund year by year, and the household
  total. A fund contributes only to the years it reports.

  With -json, rows are printed as {"year":2025,"fund_0":1000,"total":1000}
  objects, fund keys numbered by the fund position.
`
}

func (c *projectionCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the yearly rows as JSON")
}

func (c *projectionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	if c.json {
		return printJSON(s.Household().Rows)
	}
	printHousehold(s)
	return subcommands.ExitSuccess
}

type chartCmd struct {
	output string
	format string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "draw the household projection" }
func (*chartCmd) Usage() string {
	return `retire chart [-o <file>] [-format png|svg]

  Draws the household projection as a line chart: one line per fund, and the
  household total. The format defaults to the output file extension.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "household.png", "Output file")
	f.StringVar(&c.format, "format", "", "Image format, png or svg")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	name := c.format
	if name == "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(c.output)), ".")
	}
	format, err := chart.ParseFormat(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	out, err := os.Create(c.output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %q: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	defer out.Close()

	if err := chart.Render(out, s.Household(), currency(), format); err != nil {
		fmt.Fprintf(os.Stderr, "Error drawing the chart: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "✅ Household projection drawn in %s\n", c.output)
	return subcommands.ExitSuccess
}

type watchCmd struct {
	schedule string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "show the household projection periodically" }
func (*watchCmd) Usage() string {
	return `retire watch [-schedule <schedule>]

  Fetches the household again on schedule and shows the projection, until
  interrupted. The schedule is a cron expression like "0 9 * * *" or "@every 5m".
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.schedule, "schedule", "@every 5m", "Cron schedule of the refresh")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	cr := cron.New()
	if _, err := cr.AddFunc(c.schedule, func() {
		log.Println("Refreshing the household...")
		s.Fetch(ctx)
		printHousehold(s)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid schedule %q: %v\n", c.schedule, err)
		return subcommands.ExitUsageError
	}

	printHousehold(s)
	cr.Start()
	<-ctx.Done()
	<-cr.Stop().Done()
	return subcommands.ExitSuccess
}

type syncCmd struct{}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "send local changes to the backend" }
func (*syncCmd) Usage() string {
	return `retire sync

  Sends again to the backend the collections it has not accepted yet.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	if s.Offline() {
		fmt.Fprintln(os.Stderr, "Error: no backend configured.")
		return subcommands.ExitFailure
	}
	if !s.Sync(ctx) {
		return failure(s, "sync")
	}
	fmt.Fprintln(stdout, "✅ Household in sync with the backend.")
	return subcommands.ExitSuccess
}
