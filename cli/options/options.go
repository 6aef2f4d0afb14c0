/*
Package options contains the set of common CLI flags shared by meshchatd's
commands and the helpers that turn them into a config.Config and *zap.Logger.
*/
package options

import (
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rochack/meshchat-go/pkg/config"
)

const (
	// ConfigFileFlag is the long flag name for a path to a YAML config file.
	ConfigFileFlag = "config-file"
	// DebugFlag is the long flag name for forcing debug-level logging.
	DebugFlag = "debug"
	// QuietFlag is the long flag name for suppressing everything below
	// warning level, regardless of LogLevel/--debug.
	QuietFlag = "quiet"
)

// Node is the flag set accepted by the "run" command.
var Node = []cli.Flag{
	&cli.StringFlag{
		Name:    ConfigFileFlag,
		Aliases: []string{"c"},
		Usage:   "Path to a YAML configuration file",
	},
	&cli.StringFlag{
		Name:  "address",
		Usage: "Chat listen address, overrides Chat.ListenAddress from the config file",
	},
	&cli.BoolFlag{
		Name:  DebugFlag,
		Usage: "Enable debug-level logging regardless of Logger.LogLevel",
	},
	&cli.BoolFlag{
		Name:  QuietFlag,
		Usage: "Only log warnings and errors, overriding --debug and Logger.LogLevel",
	},
}

// GetConfigFromContext loads and validates the daemon's configuration,
// applying any flag overrides on top of the config file (or the built-in
// defaults, if --config-file was not given).
func GetConfigFromContext(ctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(ctx.String(ConfigFileFlag))
	if err != nil {
		return config.Config{}, err
	}
	if addr := ctx.String("address"); addr != "" {
		cfg.Chat.ListenAddress = addr
	}
	return cfg, nil
}

// HandleLoggingParams builds the logger the rest of the daemon uses,
// honoring --debug. --quiet wraps the built core in a FilteringCore that
// passes only warning-and-above entries regardless of --debug/LogLevel.
func HandleLoggingParams(ctx *cli.Context, cfg config.Config) (*zap.Logger, error) {
	log, err := cfg.Logger.Build(ctx.Bool(DebugFlag))
	if err != nil {
		return nil, err
	}
	if ctx.Bool(QuietFlag) {
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return NewFilteringCore(core, func(e zapcore.Entry) bool {
				return e.Level >= zapcore.WarnLevel
			})
		}))
	}
	return log, nil
}
