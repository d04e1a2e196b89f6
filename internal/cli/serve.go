package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/credence/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the validation API over HTTP",
	Long: `Serve starts the HTTP API:

  POST /api/v1/validation/validate            validate an article
  GET  /api/v1/validation/{id}                 fetch a stored result
  GET  /api/v1/validation/article/{fingerprint} latest result for an article
  POST /api/v1/validation/{id}/retry           re-run a failed validation
  GET  /health                                 liveness

Stored results need store.path to be set.

Example:
  credence serve --addr :8000 --store ./credence.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().String("store", "", "SQLite database for validation records")
	addPipelineFlags(serveCmd)

	pipelinePreRun := serveCmd.PreRun
	serveCmd.PreRun = func(cmd *cobra.Command, args []string) {
		pipelinePreRun(cmd, args)
		_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
		_ = viper.BindPFlag("store.path", cmd.Flags().Lookup("store"))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cfg, log, closeFn, err := newService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	if cfg.Store.Path == "" {
		log.Warn("No store.path configured, result lookup and retry are disabled")
	}

	return server.New(svc, cfg.Server, Version, log).ListenAndServe(ctx)
}
