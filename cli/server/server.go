// Package server implements meshchatd's "run" command: the one that
// actually starts the daemon and blocks until it's told to stop.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/rochack/meshchat-go/cli/options"
	"github.com/rochack/meshchat-go/pkg/daemon"
)

// NewCommands returns the "run" command.
func NewCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "run",
			Usage:     "Start the meshchatd daemon",
			UsageText: "meshchatd run [--config-file file] [--address addr] [--debug]",
			Action:    runDaemon,
			Flags:     options.Node,
		},
	}
}

func runDaemon(ctx *cli.Context) error {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}

	log, err := options.HandleLoggingParams(ctx, cfg)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = log.Sync() }()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return cli.Exit(fmt.Errorf("failed to build daemon: %w", err), 1)
	}

	grace, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := d.Run(grace); err != nil && err != context.Canceled {
		return cli.Exit(fmt.Errorf("daemon stopped: %w", err), 1)
	}
	return nil
}
