package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/retirement/adapter"
	"github.com/etnz/retirement/renderer"
	json "github.com/goccy/go-json"
	"github.com/google/subcommands"
)

type membersCmd struct {
	json bool
}

func (*membersCmd) Name() string     { return "members" }
func (*membersCmd) Synopsis() string { return "list the family members" }
func (*membersCmd) Usage() string {
	return `retire members [-json]

  Lists the household family members, with their position used by the other
  commands (-i and -member flags).

  If the household has no member yet, a default one is created.
`
}

func (c *membersCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the members as JSON")
}

func (c *membersCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	if c.json {
		return printJSON(s.Members())
	}
	printMarkdown(renderer.RenderMembers(renderer.NewMembersReport(s.Members(), s.Today())) + status(s))
	return subcommands.ExitSuccess
}

type addMemberCmd struct {
	memberFlags
}

func (*addMemberCmd) Name() string     { return "add-member" }
func (*addMemberCmd) Synopsis() string { return "add a family member" }
func (*addMemberCmd) Usage() string {
	return `retire add-member [-name <name>] [-dob <date>] [-life <years>] [-retire <age>]

  Adds a family member. Fields not given take the default member values:
  "Me", 30 years old, retiring at 65, with a life expectancy of 90.
`
}

func (c *addMemberCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	patch, err := c.patch(f)
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

	members := adapter.Members(s)
	if !members.Update(ctx, members.Len(), &patch) {
		return failure(s, "add the member")
	}
	printMarkdown(renderer.RenderMembers(renderer.NewMembersReport(s.Members(), s.Today())) + status(s))
	return subcommands.ExitSuccess
}

type updateMemberCmd struct {
	indexFlag
	memberFlags
}

func (*updateMemberCmd) Name() string     { return "update-member" }
func (*updateMemberCmd) Synopsis() string { return "change a family member" }
func (*updateMemberCmd) Usage() string {
	return `retire update-member -i <position> [-name <name>] [-dob <date>] [-life <years>] [-retire <age>]

  Changes the fields given on the command line of the member at position -i.
  Fund projections are refreshed afterwards.
`
}

func (c *updateMemberCmd) SetFlags(f *flag.FlagSet) {
	c.indexFlag.SetFlags(f)
	c.memberFlags.SetFlags(f)
}

func (c *updateMemberCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	patch, err := c.patch(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if patch.IsEmpty() {
		fmt.Fprintln(os.Stderr, "Error: nothing to change, see 'retire help update-member'.")
		return subcommands.ExitUsageError
	}

	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	members := adapter.Members(s)
	if err := c.check(members.Len(), "family member"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !members.Update(ctx, c.index, &patch) {
		return failure(s, "update the member")
	}
	printMarkdown(renderer.RenderMembers(renderer.NewMembersReport(s.Members(), s.Today())) + status(s))
	return subcommands.ExitSuccess
}

type deleteMemberCmd struct {
	indexFlag
}

func (*deleteMemberCmd) Name() string     { return "delete-member" }
func (*deleteMemberCmd) Synopsis() string { return "remove a family member" }
func (*deleteMemberCmd) Usage() string {
	return `retire delete-member -i <position>

  Removes the member at position -i. Its funds are kept, and reported as owned
  by "Unknown" until they are given another owner.
`
}

func (c *deleteMemberCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := OpenStore(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the household: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeStore(s)

	members := adapter.Members(s)
	if err := c.check(members.Len(), "family member"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if !members.Update(ctx, c.index, nil) {
		return failure(s, "delete the member")
	}
	printMarkdown(renderer.RenderMembers(renderer.NewMembersReport(s.Members(), s.Today())) + status(s))
	return subcommands.ExitSuccess
}

// printJSON prints v as indented JSON.
func printJSON(v any) subcommands.ExitStatus {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, string(data))
	return subcommands.ExitSuccess
}
