package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/adapter"
	"github.com/etnz/retirement/renderer"
	"github.com/etnz/retirement/store"
	"github.com/google/subcommands"
)

func printFunds(s *store.Store) {
	printMarkdown(renderer.RenderFunds(renderer.NewFundsReport(s.Funds(), s.Members(), currency())) + status(s))
}

type fundsCmd struct {
	json bool
}

func (*fundsCmd) Name() string     { return "funds" }
func (*fundsCmd) Synopsis() string { return "list the retirement funds" }
func (*fundsCmd) Usage() string {
	return `retire funds [-json]

  Lists the household retirement funds, with their owner and last projected
  balance.

  If the household has no fund yet, a default one is created.
`
}

func (c *fundsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the funds as JSON, projections included")
}

func (c *fundsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	if c.json {
		return printJSON(s.Funds())
	}
	printFunds(s)
	return subcommands.ExitSuccess
}

type fundCmd struct {
	indexFlag
}

func (*fundCmd) Name() string     { return "fund" }
func (*fundCmd) Synopsis() string { return "show a retirement fund in detail" }
func (*fundCmd) Usage() string {
	return `retire fund -i <position>

  Shows the fund at position -i: its parameters, return rates by age, actual
  balances and year by year projection.
`
}

func (c *fundCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	funds := adapter.Funds(s)
	if err := c.check(funds.Len(), "fund"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	fund, _ := funds.At(c.index)
	printMarkdown(renderer.RenderFund(renderer.NewFundReport(c.index, fund, s.Members(), currency())) + status(s))
	return subcommands.ExitSuccess
}

type addFundCmd struct {
	fundFlags
}

func (*addFundCmd) Name() string     { return "add-fund" }
func (*addFundCmd) Synopsis() string { return "add a retirement fund" }
func (*addFundCmd) Usage() string {
	return `retire add-fund [-name <name>] [-member <position>] [-initial <amount>] [-contribution <amount>]
       [-frequency <frequency>] [-start <date>] [-rates <ranges>]

  Adds a retirement fund. Fields not given take the default fund values: owned
  by the first member, 1000 initial investment, 10 monthly, 7% at all ages.
`
}

func (c *addFundCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	patch, err := c.patch(f, adapter.Members(s))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	funds := adapter.Funds(s)
	if !funds.Update(ctx, funds.Len(), &patch) {
		return failure(s, "add the fund")
	}
	printFunds(s)
	return subcommands.ExitSuccess
}

type updateFundCmd struct {
	indexFlag
	fundFlags
}

func (*updateFundCmd) Name() string     { return "update-fund" }
func (*updateFundCmd) Synopsis() string { return "change a retirement fund" }
func (*updateFundCmd) Usage() string {
	return `retire update-fund -i <position> [-name <name>] [-member <position>] [-initial <amount>]
       [-contribution <amount>] [-frequency <frequency>] [-start <date>] [-rates <ranges>]

  Changes the fields given on the command line of the fund at position -i.
  An empty -rates '' removes all the ranges: the default 7% applies at all ages.
`
}

func (c *updateFundCmd) SetFlags(f *flag.FlagSet) {
	c.indexFlag.SetFlags(f)
	c.fundFlags.SetFlags(f)
}

func (c *updateFundCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	funds := adapter.Funds(s)
	if err := c.check(funds.Len(), "fund"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	patch, err := c.patch(f, adapter.Members(s))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if patch.IsEmpty() {
		fmt.Fprintln(os.Stderr, "Error: nothing to change, see 'retire help update-fund'.")
		return subcommands.ExitUsageError
	}
	if !funds.Update(ctx, c.index, &patch) {
		return failure(s, "update the fund")
	}
	printFunds(s)
	return subcommands.ExitSuccess
}

type deleteFundCmd struct {
	indexFlag
}

func (*deleteFundCmd) Name() string     { return "delete-fund" }
func (*deleteFundCmd) Synopsis() string { return "remove a retirement fund" }
func (*deleteFundCmd) Usage() string {
	return `retire delete-fund -i <position>

  Removes the fund at position -i. Later funds move up by one position.
`
}

func (c *deleteFundCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	funds := adapter.Funds(s)
	if err := c.check(funds.Len(), "fund"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !funds.Update(ctx, c.index, nil) {
		return failure(s, "delete the fund")
	}
	printFunds(s)
	return subcommands.ExitSuccess
}

type overrideCmd struct {
	indexFlag
	year          int
	balance       float64
	contributions float64
	growth        float64
	clear         bool
}

func (*overrideCmd) Name() string     { return "override" }
func (*overrideCmd) Synopsis() string { return "record the actual balance of a fund for a year" }
func (*overrideCmd) Usage() string {
	return `retire override -i <position> -year <year> [-balance <amount>] [-contributions <amount>] [-growth <amount>]
retire override -i <position> -year <year> -clear

  Records what really happened to the fund at position -i during a past year.
  The projection restarts from the actual balance that year. Figures not given
  count as zero. A new override of the same year replaces the previous one.

  With -clear the override of that year is removed.
`
}

func (c *overrideCmd) SetFlags(f *flag.FlagSet) {
	c.indexFlag.SetFlags(f)
	f.IntVar(&c.year, "year", 0, fmt.Sprintf("Year of the actual figures, between %d and %d (required)", retirement.MinActualYear, retirement.MaxActualYear))
	f.Float64Var(&c.balance, "balance", 0, "Actual end of year balance")
	f.Float64Var(&c.contributions, "contributions", 0, "Actual contributions during the year")
	f.Float64Var(&c.growth, "growth", 0, "Actual growth during the year")
	f.BoolVar(&c.clear, "clear", false, "Remove the override of that year")
}

// figures returns the figures set on the command line, nil for the others.
func (c *overrideCmd) figures(f *flag.FlagSet) (balance, contributions, growth *float64) {
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "balance":
			balance = retirement.Ptr(c.balance)
		case "contributions":
			contributions = retirement.Ptr(c.contributions)
		case "growth":
			growth = retirement.Ptr(c.growth)
		}
	})
	return
}

func (c *overrideCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.year == 0 {
		fmt.Fprintln(os.Stderr, "Error: -year is required.")
		return subcommands.ExitUsageError
	}
	balance, contributions, growth := c.figures(f)
	none := balance == nil && contributions == nil && growth == nil
	if none != c.clear {
		fmt.Fprintln(os.Stderr, "Error: either -clear or at least one of -balance, -contributions and -growth is required.")
		return subcommands.ExitUsageError
	}

	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	funds := adapter.Funds(s)
	if err := c.check(funds.Len(), "fund"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	id, _ := funds.ID(c.index)
	if !s.UpdateActualOverride(ctx, id, c.year, balance, contributions, growth) {
		return failure(s, "record the override")
	}
	fund, _ := s.Fund(id)
	printMarkdown(renderer.RenderFund(renderer.NewFundReport(c.index, fund, s.Members(), currency())) + status(s))
	return subcommands.ExitSuccess
}
