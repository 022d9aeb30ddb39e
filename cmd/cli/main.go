package main

import (
	"context"
	"fmt"
	"os"

	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/neexa/neexa-backend/internal/server/admin"
	"github.com/neexa/neexa-backend/internal/server/config"
	"golang.org/x/term"
)

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogLevel, "text")

	cmds := admin.NewCommands(cfg, os.Stdout, logger, readPassword)
	if err := cmds.Run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
