package cmd

import (
	"flag"
	"slices"
	"testing"

	"github.com/google/subcommands"
)

func TestCompletion(t *testing.T) {
	commander := subcommands.NewCommander(flag.NewFlagSet("retire", flag.ContinueOnError), "retire")
	commander.Register(commander.HelpCommand(), "")
	Register(commander)

	c := Completion(commander)
	for _, name := range []string{"members", "add-fund", "override", "projection", "chart", "watch", "sync", "topic", "help"} {
		if _, ok := c.Sub[name]; !ok {
			t.Errorf("Completion().Sub[%q] is missing", name)
		}
	}
	if _, ok := c.Flags["raw"]; !ok {
		t.Errorf("Completion().Flags has no global -raw flag")
	}

	addFund := c.Sub["add-fund"]
	if got := addFund.Flags["frequency"].Predict(""); !slices.Contains(got, "Bi-Weekly") {
		t.Errorf("add-fund -frequency predicts %v, want Bi-Weekly among them", got)
	}
	if got := c.Sub["chart"].Flags["format"].Predict(""); !slices.Equal(got, []string{"png", "svg"}) {
		t.Errorf("chart -format predicts %v, want [png svg]", got)
	}
	if got := c.Sub["topic"].Args.Predict(""); !slices.Contains(got, "getting-started") {
		t.Errorf("topic predicts %v, want getting-started among them", got)
	}
	if got := c.Sub["help"].Args.Predict(""); !slices.Contains(got, "update-member") {
		t.Errorf("help predicts %v, want update-member among them", got)
	}
}
