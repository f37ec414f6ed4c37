// Package cmd wires the episodic CLI: configuration, logging, and the
// record/replay/info/doctor/version subcommands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/episodic/pkg/config"
	"github.com/offlinefirst/episodic/pkg/logging"
)

// App carries configuration and logging shared across subcommands. Both
// are initialised lazily so commands like version run without a config
// file.
type App struct {
	Config config.Config
	Logger *slog.Logger

	configPath string
	logLevel   string
	logFormat  string

	initialised bool
}

// Init loads configuration, applies flag overrides, and builds the logger.
// Safe to call more than once.
func (a *App) Init(stderr io.Writer) error {
	if a.initialised {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		lvl, err := config.NormalizeLogLevel(a.logLevel)
		if err != nil {
			return err
		}
		cfg.Logging.Level = lvl
	}
	if a.logFormat != "" {
		format, err := config.NormalizeFormat(a.logFormat)
		if err != nil {
			return err
		}
		cfg.Logging.Format = format
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: stderr,
	})
	if err != nil {
		return err
	}

	logger.Info("configuration loaded", "source", cfg.Source, "data_dir", cfg.Paths.DataDir)

	a.Config = cfg
	a.Logger = logger
	a.initialised = true
	return nil
}

// NewRootCommand builds the episodic command tree.
func NewRootCommand() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:   "episodic",
		Short: "Record and replay desktop interaction episodes",
		Long: "episodic captures timestamped screen frames, cursor positions and input\n" +
			"events into a single episode file, and replays recorded episodes with the\n" +
			"original timing.",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.PersistentFlags().StringVar(&app.configPath, "config", "", "Path to config file (default: ./config.yaml if present)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&app.logFormat, "log-format", "", "Override log output format (json, console)")

	root.AddCommand(
		newRecordCmd(app),
		newReplayCmd(app),
		newInfoCmd(app),
		newDoctorCmd(app),
		newVersionCmd(),
	)

	return root
}

// Execute runs the CLI and maps errors to the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
