// Package app assembles the meshchatd command-line application.
package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/rochack/meshchat-go/cli/server"
)

// Version is the daemon's version string, set at build time via
// -ldflags "-X github.com/rochack/meshchat-go/cli/app.Version=...".
var Version = "dev"

func versionPrinter(ctx *cli.Context) {
	_, _ = fmt.Fprintf(ctx.App.Writer, "meshchatd\nVersion: %s\nGoVersion: %s\n", Version, runtime.Version())
}

// New creates the meshchatd [cli.App] with every command wired in.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "meshchatd"
	ctl.Version = Version
	ctl.Usage = "A chat relay bridging an IRC-subset protocol to a cjdns-style mesh overlay"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, server.NewCommands()...)
	return ctl
}
