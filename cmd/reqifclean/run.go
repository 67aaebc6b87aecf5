package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/reqifclean/internal/batch"
	"github.com/suykerbuyk/reqifclean/internal/config"
	"github.com/suykerbuyk/reqifclean/internal/ledger"
	"github.com/suykerbuyk/reqifclean/internal/validate"
	"github.com/suykerbuyk/reqifclean/internal/watch"
)

// modeFlags are shared by run and watch. Flags override the config file
// only when given.
type modeFlags struct {
	cleanup     bool
	identifier  bool
	validate    bool
	debug       bool
	input       string
	output      string
	haltOnError bool
}

func (f *modeFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.BoolVar(&f.cleanup, "cleanup", false, "remove elements with foreign identifiers")
	flags.BoolVar(&f.identifier, "identifier", false, "fill in an empty REPOSITORY-ID")
	flags.BoolVar(&f.validate, "validate", false, "validate documents against the schema")
	flags.BoolVar(&f.debug, "debug", false, "copy containers to the output directory instead of moving them")
	flags.StringVar(&f.input, "input", "", "input directory")
	flags.StringVar(&f.output, "output", "", "output directory")
	flags.BoolVar(&f.haltOnError, "halt-on-error", false, "stop the batch at the first failed container")
}

// apply merges flags and positional mode words into cfg.
func (f *modeFlags) apply(cmd *cobra.Command, args []string, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("cleanup") {
		cfg.Modes.Cleanup = f.cleanup
	}
	if flags.Changed("identifier") {
		cfg.Modes.Identifier = f.identifier
	}
	if flags.Changed("validate") {
		cfg.Modes.Validate = f.validate
	}
	if flags.Changed("debug") {
		cfg.Modes.Debug = f.debug
	}
	if flags.Changed("input") {
		cfg.InputDir = f.input
	}
	if flags.Changed("output") {
		cfg.OutputDir = f.output
	}
	if flags.Changed("halt-on-error") {
		cfg.HaltOnError = f.haltOnError
	}

	for _, word := range args {
		switch word {
		case "cleanup":
			cfg.Modes.Cleanup = true
		case "identifier":
			cfg.Modes.Identifier = true
		case "validate":
			cfg.Modes.Validate = true
		case "debug":
			cfg.Modes.Debug = true
		default:
			return fmt.Errorf("unknown mode %q (want cleanup, identifier, validate or debug)", word)
		}
	}

	if !cfg.Rewrites() && !cfg.Modes.Validate {
		return errors.New("nothing to do: enable cleanup, identifier or validate")
	}
	return nil
}

var (
	runFlags   modeFlags
	watchFlags modeFlags
)

var runCmd = &cobra.Command{
	Use:   "run [cleanup] [identifier] [validate] [debug]",
	Short: "Process every container in the input directory",
	Long: `Process every .reqifz container in the input directory.

With cleanup or identifier active, containers are moved (copied with debug)
to the output directory and rewritten there. Validation alone leaves them
in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := runFlags.apply(cmd, args, &cfg); err != nil {
			return err
		}
		logger := newLogger()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		proc, cleanup, err := newProcessor(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		summary, err := proc.Run(ctx)
		if err != nil {
			return err
		}
		if summary.Containers == 0 {
			logger.Info("no containers found", "input", cfg.InputDir)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [cleanup] [identifier] [validate] [debug]",
	Short: "Process containers as they arrive in the input directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := watchFlags.apply(cmd, args, &cfg); err != nil {
			return err
		}
		settle, err := cfg.SettleInterval()
		if err != nil {
			return err
		}
		logger := newLogger()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		proc, cleanup, err := newProcessor(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := proc.Begin(ctx); err != nil {
			return err
		}
		defer proc.Finish(context.Background(), nil)

		w := watch.New(cfg.InputDir, settle, func(ctx context.Context, path string) error {
			_, err := proc.ProcessFile(ctx, path)
			return err
		}, logger)
		return w.Run(ctx)
	},
}

func init() {
	runFlags.register(runCmd)
	watchFlags.register(watchCmd)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// newProcessor wires the schema and ledger configured in cfg. The returned
// func releases them.
func newProcessor(cfg config.Config, logger *slog.Logger) (*batch.Processor, func(), error) {
	var opts []batch.Option
	cleanup := func() {}

	if cfg.Modes.Validate {
		v, err := validate.NewFromDir(cfg.Schema.Dir, cfg.Schema.Root,
			validate.WithAllowMissingImports(cfg.Schema.AllowMissingImports))
		if err != nil {
			return nil, cleanup, err
		}
		logger.Debug("schema loaded", "dir", cfg.Schema.Dir, "root", cfg.Schema.Root)
		opts = append(opts, batch.WithValidator(v))
	}

	if cfg.Ledger.Enabled {
		l, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, batch.WithRecorder(l))
		cleanup = func() {
			if err := l.Close(); err != nil {
				logger.Warn("close ledger", "error", err)
			}
		}
	}

	return batch.New(cfg, logger, opts...), cleanup, nil
}
