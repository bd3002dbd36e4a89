package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wealth-go-api/internal/advisor"
	"wealth-go-api/internal/config"
	"wealth-go-api/internal/services"
)

type chatCmd struct {
	raw     bool
	verbose bool
}

func (*chatCmd) Name() string     { return "chat" }
func (*chatCmd) Synopsis() string { return "talk to the wealth advisor" }
func (*chatCmd) Usage() string {
	return `advisor chat [-raw] [-v]

  Starts an interactive session with the configured model. The conversation
  is kept in memory for the session. Type "clear" to forget it, "exit" to quit.
`
}

func (c *chatCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal rendering")
	f.BoolVar(&c.verbose, "v", false, "log tool calls to stderr")
}

func (c *chatCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	log := zerolog.Nop()
	if c.verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	provider, err := advisor.NewProvider(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	analysis, err := newAnalysisService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	memory := services.NewMemoryService(nil, log)
	adv := advisor.New(provider, memory, analysis, cfg.HistoryLimit, nil, log)
	userID := uuid.NewString()

	fmt.Printf("Wealth advisor (%s). Type \"exit\" to quit.\n", provider.Name())
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return subcommands.ExitSuccess
		case "clear":
			if err := memory.ClearHistory(ctx, userID); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			continue
		}

		reply, err := adv.Chat(ctx, userID, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		printMarkdown(reply.Text, c.raw)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
