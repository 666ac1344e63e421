// Package cli defines the jsontab command tree.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reoring/jsontab/i18n"
	"github.com/reoring/jsontab/internal/config"
	"github.com/reoring/jsontab/internal/logging"

	// registers the go-json token source as the default driver
	_ "github.com/reoring/jsontab/source"
)

// Version is stamped at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

type app struct {
	flags globalFlags
	cfg   *config.Config
}

// Execute runs the command line with os.Args.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "jsontab",
		Short: "Flatten JSON documents into CSV with a column schema",
		Long: `jsontab streams the array members of a JSON document into comma-separated rows.
Nested objects merge into their parent row, nested arrays fan out into extra rows,
and a schema document lists every column with its inferred type.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.flags.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.flags.logFormat, "log-format", "", "log format: text, json")

	root.AddCommand(
		newConvertCommand(a),
		newServeCommand(a),
		newWatchCommand(a),
		newVersionCommand(),
	)
	return root
}

// setup loads the configuration and installs logging before any subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		cfg.Logging.Level = a.flags.logLevel
	}
	if a.flags.logFormat != "" {
		cfg.Logging.Format = a.flags.logFormat
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	i18n.SetLanguage(cfg.Convert.Language)
	a.cfg = cfg
	return nil
}
