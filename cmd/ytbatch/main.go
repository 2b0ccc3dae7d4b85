// Package main is the entry point for the ytbatch CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ytbatch/internal/cli"
	"ytbatch/internal/commands"
	"ytbatch/internal/config"
	"ytbatch/internal/logging"
	"ytbatch/internal/session"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	logging.Init(false)

	// Create backend factory
	factory := func(cfg *config.Config) commands.Backend {
		return session.New(cfg)
	}

	// Create dispatcher
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
