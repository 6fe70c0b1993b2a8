package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/shmocker/dockerfile-lsp/internal/config"
	"github.com/shmocker/dockerfile-lsp/internal/logging"
	"github.com/shmocker/dockerfile-lsp/pkg/dockerfile"
)

var (
	// Version information (set by build)
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global flags
	cfgFile string
	verbose bool

	// Loaded in PersistentPreRunE
	cfg      *config.Config
	settings dockerfile.ValidatorSettings
	logger   *slog.Logger
)

// errLintFailed makes the process exit non-zero without printing anything
// beyond the report itself.
var errLintFailed = errors.New("lint found errors")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dockerfile-lsp",
	Short: "Dockerfile diagnostics for editors and the command line",
	Long: `dockerfile-lsp parses Dockerfiles and reports positioned diagnostics.

It runs either as a language server over stdio for editors, or as a linter
over files on disk.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfiguration()
	},
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "dockerfile-lsp version: %s\n", version)
		fmt.Fprintf(out, "Git commit: %s\n", commit)
		fmt.Fprintf(out, "Build time: %s\n", buildTime)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dockerfile-lsp.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfiguration reads the config file and environment, then builds the
// logger and validator settings shared by every subcommand.
func loadConfiguration() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return errors.Wrap(err, "log.level")
	}
	if verbose {
		level = logging.LevelDebug
	}
	logger = logging.New(logging.Config{Level: level, JSON: cfg.Log.JSON})

	settings, err = cfg.ValidatorSettings()
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded",
		"deprecatedMaintainer", settings.DeprecatedMaintainer,
		"instructionCasing", settings.InstructionCasing)
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errLintFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
