// Command retire plans a household retirement: family members, their funds, and the household projection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/etnz/retirement/cmd"
	"github.com/google/subcommands"
)

func main() {
	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// exits when the shell asks for a completion.
	cmd.Completion(commander).Complete(name)

	flag.Parse()

	ctx := context.Background()
	shutdown, err := cmd.Setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(subcommands.ExitFailure))
	}
	status := commander.Execute(ctx)
	if err := shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing traces: %v\n", err)
	}
	os.Exit(int(status))
}
