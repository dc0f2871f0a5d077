package cmd

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/retirement/config"
	"github.com/google/subcommands"
)

// offlineHousehold configures the commands on a fresh local household.
func offlineHousehold(t *testing.T) {
	t.Helper()
	saved, savedRaw := cfg, *rawMarkdown
	t.Cleanup(func() { cfg, *rawMarkdown = saved, savedRaw })
	cfg = config.Config{
		UserID:       "test-user",
		SnapshotPath: filepath.Join(t.TempDir(), "retire.db"),
		Currency:     "USD",
		Today:        "2025-06-01",
	}
	*rawMarkdown = true
}

// run parses args for c and executes it, returning what it printed.
func run(t *testing.T, c subcommands.Command, args ...string) (string, subcommands.ExitStatus) {
	t.Helper()
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("%s %v: cannot parse flags: %v", c.Name(), args, err)
	}
	var buf bytes.Buffer
	stdout = &buf
	t.Cleanup(func() { stdout = os.Stdout })
	status := c.Execute(context.Background(), fs)
	return buf.String(), status
}

func TestHouseholdCommands(t *testing.T) {
	offlineHousehold(t)

	steps := []struct {
		cmd    subcommands.Command
		args   []string
		status subcommands.ExitStatus
		want   []string
	}{
		{&membersCmd{}, nil, subcommands.ExitSuccess, []string{
			"| 0 | Me | 1995-06-01 | 30 | 65 | 2060 (35 years) | 90 |",
			"only stored locally",
		}},
		{&addMemberCmd{}, []string{"-name", "Bob", "-dob", "1980-01-01", "-retire", "60"}, subcommands.ExitSuccess, []string{
			"| 1 | Bob | 1980-01-01 | 45 | 60 | 2040 (15 years) | 90 |",
		}},
		{&fundsCmd{}, nil, subcommands.ExitSuccess, []string{
			"| 0 | Retirement Savings | Me | $1,000.00 | $10.00 | Monthly | 2025-06-01 |  |",
		}},
		{&addFundCmd{}, []string{"-name", "IRA", "-member", "1", "-frequency", "Weekly", "-rates", "0-59:6,60-120:3"}, subcommands.ExitSuccess, []string{
			"| 1 | IRA | Bob | $1,000.00 | $10.00 | Weekly | 2025-06-01 |  |",
		}},
		{&fundCmd{}, []string{"-i", "1"}, subcommands.ExitSuccess, []string{
			"| 0 | 59 | 6.00% |",
			"| 60 | 120 | 3.00% |",
		}},
		{&updateMemberCmd{}, []string{"-i", "9", "-name", "Nobody"}, subcommands.ExitUsageError, nil},
		{&updateMemberCmd{}, []string{"-i", "0"}, subcommands.ExitUsageError, nil},
		{&updateMemberCmd{}, []string{"-i", "0", "-life", "200"}, subcommands.ExitFailure, nil},
		{&updateFundCmd{}, []string{"-i", "0", "-contribution", "250", "-frequency", "26"}, subcommands.ExitSuccess, []string{
			"| 0 | Retirement Savings | Me | $1,000.00 | $250.00 | Bi-Weekly |",
		}},
		{&deleteMemberCmd{}, []string{"-i", "1"}, subcommands.ExitSuccess, nil},
		{&fundsCmd{}, nil, subcommands.ExitSuccess, []string{
			"| 1 | IRA | Unknown |",
		}},
		{&overrideCmd{}, []string{"-i", "0", "-year", "2024", "-balance", "1500"}, subcommands.ExitSuccess, []string{
			"| 2024 | $1,500.00 | $0.00 | $0.00 |",
		}},
		{&overrideCmd{}, []string{"-i", "0", "-year", "2024"}, subcommands.ExitUsageError, nil},
		{&overrideCmd{}, []string{"-i", "0", "-year", "1999", "-balance", "1"}, subcommands.ExitFailure, nil},
		{&deleteFundCmd{}, []string{"-i", "1"}, subcommands.ExitSuccess, nil},
		{&deleteFundCmd{}, []string{"-i", "1"}, subcommands.ExitUsageError, nil},
		{&projectionCmd{}, nil, subcommands.ExitSuccess, []string{
			"_No fund reports a projection yet._",
		}},
		{&syncCmd{}, nil, subcommands.ExitFailure, nil},
	}
	for _, step := range steps {
		got, status := run(t, step.cmd, step.args...)
		if status != step.status {
			t.Errorf("%s %v = %v, want %v\n%s", step.cmd.Name(), step.args, status, step.status, got)
			continue
		}
		for _, want := range step.want {
			if !strings.Contains(got, want) {
				t.Errorf("%s %v printed\n%s\nwant %q", step.cmd.Name(), step.args, got, want)
			}
		}
	}

	// the household was saved after each command.
	got, _ := run(t, &fundCmd{}, "-i", "0")
	if !strings.Contains(got, "| 2024 | $1,500.00 |") {
		t.Errorf("fund -i 0 printed\n%s\nwant the 2024 override", got)
	}
	got, _ = run(t, &fundsCmd{}, "-json")
	if strings.Contains(got, "IRA") || !strings.Contains(got, `"name": "Retirement Savings"`) {
		t.Errorf("funds -json printed\n%s\nwant the remaining fund only", got)
	}
}

func TestChartCommand(t *testing.T) {
	offlineHousehold(t)

	out := filepath.Join(t.TempDir(), "household.gif")
	if _, status := run(t, &chartCmd{}, "-o", out); status != subcommands.ExitUsageError {
		t.Errorf("chart -o %s = %v, want %v", out, status, subcommands.ExitUsageError)
	}
	// offline funds have no projection.
	out = filepath.Join(t.TempDir(), "household.svg")
	if _, status := run(t, &chartCmd{}, "-o", out); status != subcommands.ExitFailure {
		t.Errorf("chart -o %s = %v, want %v", out, status, subcommands.ExitFailure)
	}
}

func TestTopicCommand(t *testing.T) {
	offlineHousehold(t)

	got, status := run(t, &topicCmd{}, "-list")
	if status != subcommands.ExitSuccess {
		t.Fatalf("topic -list = %v, want success", status)
	}
	if !strings.Contains(got, "getting-started\n") || strings.Contains(got, "readme") {
		t.Errorf("topic -list printed %q", got)
	}
	if _, status := run(t, &topicCmd{}, "no-such-topic"); status != subcommands.ExitFailure {
		t.Errorf("topic no-such-topic = %v, want failure", status)
	}
}

func TestApplyFlags(t *testing.T) {
	saved := [...]string{*backendURL, *userID}
	t.Cleanup(func() { *backendURL, *userID, *offline = saved[0], saved[1], false })

	*backendURL, *userID = "http://localhost:5000", "alice"
	c := config.Config{UserID: "default-user"}
	applyFlags(&c)
	if c.BackendURL != "http://localhost:5000" || c.UserID != "alice" {
		t.Errorf("applyFlags() = %+v", c)
	}
	*offline = true
	applyFlags(&c)
	if !c.Offline() {
		t.Errorf("applyFlags(-offline).Offline() = false, want true")
	}
}
