// Command advisor runs the portfolio analytics and the chat advisor from the
// terminal.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "analysis")
	}
	commander.Register(&chatCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
