package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shmocker/dockerfile-lsp/internal/lint"
	"github.com/shmocker/dockerfile-lsp/internal/report"
	"github.com/shmocker/dockerfile-lsp/pkg/dockerfile"
)

// lintCmd represents the lint command
var lintCmd = &cobra.Command{
	Use:   "lint [flags] [FILE...]",
	Short: "Validate Dockerfiles",
	Long: `Validate one or more Dockerfiles and print their diagnostics.

Without arguments ./Dockerfile is checked. Use "-" to read from standard input.
The command exits with status 1 when any error is reported.`,
	RunE: runLintCommand,
}

func init() {
	lintCmd.Flags().StringP("format", "f", string(report.FormatText), "output format (text, json)")
	lintCmd.Flags().BoolP("watch", "w", false, "re-run when the files change")
	lintCmd.Flags().Bool("no-color", false, "disable colored output")
}

func runLintCommand(cmd *cobra.Command, args []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	watch, _ := cmd.Flags().GetBool("watch")
	noColor, _ := cmd.Flags().GetBool("no-color")

	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	paths := args
	if len(paths) == 0 {
		paths = []string{"Dockerfile"}
	}
	if watch {
		for _, path := range paths {
			if path == lint.Stdin {
				return errors.New("--watch cannot be used with standard input")
			}
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner := &lint.Runner{Linter: dockerfile.NewValidator(settings)}
	writer := report.NewWriter(cmd.OutOrStdout(), format, useColor(noColor, format))

	failed, err := lintOnce(ctx, runner, writer, paths)
	if err != nil {
		return err
	}
	if !watch {
		if failed {
			return errLintFailed
		}
		return nil
	}

	logger.Info("watching for changes", "files", len(paths))
	watcher := &lint.Watcher{Logger: logger}
	return watcher.Watch(ctx, paths, func(changed []string) {
		logger.Debug("files changed", "files", changed)
		if _, err := lintOnce(ctx, runner, writer, paths); err != nil {
			logger.Error("lint failed", "error", err)
		}
	})
}

// lintOnce lints paths, writes the report and tells whether errors were found.
func lintOnce(ctx context.Context, runner *lint.Runner, writer *report.Writer, paths []string) (bool, error) {
	results, err := runner.Run(ctx, paths)
	if err != nil {
		return false, err
	}
	if err := writer.Write(results); err != nil {
		return false, err
	}
	return report.Summarize(results).Errors > 0, nil
}

func useColor(noColor bool, format report.Format) bool {
	if noColor || format != report.FormatText {
		return false
	}
	switch cfg.Output.Color {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isTerminal(os.Stdout)
}

// isTerminal checks whether the file is a terminal
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
