package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/shmocker/dockerfile-lsp/internal/lsp"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server over stdio",
	Long: `Run the language server, reading requests from standard input and
writing responses to standard output. Logs go to standard error.`,
	Args: cobra.NoArgs,
	RunE: runServeCommand,
}

func init() {
	serveCmd.Flags().Duration("debounce", 0, "delay validation after edits (overrides lsp.debounce)")
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	debounce := cfg.LSP.Debounce
	if cmd.Flags().Changed("debounce") {
		debounce, _ = cmd.Flags().GetDuration("debounce")
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("language server starting", "version", version, "debounce", debounce)
	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.Options{
		Settings: settings,
		Debounce: debounce,
		Logger:   logger,
		Version:  version,
	})
	err := server.Run(ctx)
	logger.Info("language server stopped")
	return err
}
