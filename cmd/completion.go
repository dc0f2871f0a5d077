package cmd

import (
	"flag"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion of the global flags and of the commands registered in c.
//
// A main package calls Complete on it before parsing flags. It is a no-op
// unless the shell asks for a completion.
func Completion(c *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: flagPredictors(flag.CommandLine),
	}
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		cmd.SetFlags(fs)
		sub := &complete.Command{Flags: flagPredictors(fs)}
		switch cmd.Name() {
		case "topic":
			if topics, err := docs.GetAllTopics(); err == nil {
				sub.Args = predict.Set(topics)
			}
		case "help":
			sub.Args = commandNames(c)
		}
		root.Sub[cmd.Name()] = sub
	})
	return root
}

func commandNames(c *subcommands.Commander) predict.Set {
	var names predict.Set
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		names = append(names, cmd.Name())
	})
	return names
}

func flagPredictors(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := map[string]complete.Predictor{}
	fs.VisitAll(func(f *flag.Flag) { flags[f.Name] = flagPredictor(f) })
	return flags
}

func flagPredictor(f *flag.Flag) complete.Predictor {
	switch f.Name {
	case "frequency":
		var labels predict.Set
		for _, freq := range retirement.Frequencies {
			labels = append(labels, freq.String())
		}
		return labels
	case "format":
		return predict.Set{"png", "svg"}
	case "o", "snapshot":
		return predict.Files("*")
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	return predict.Something
}
