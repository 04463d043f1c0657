package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/geo-mcp/domain/config"
	infraconfig "github.com/felixgeelhaar/geo-mcp/infrastructure/config"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
)

// serveOptions holds options for the serve command.
type serveOptions struct {
	transport string
	addr      string
	watch     bool
}

// newServeCmd creates the serve command.
func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server over stdio (default) or HTTP.

Logs are written to stderr; stdout is reserved for the stdio transport.

Examples:
  # Serve over stdio with defaults
  geo-mcp serve

  # Serve over HTTP and reload the log level when the file changes
  geo-mcp serve -c geo-mcp.yaml --transport http --addr :8080 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport: stdio or http (overrides config)")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address for the http transport (overrides config)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Reload the configuration file when it changes")

	return cmd
}

func (a *App) serve(ctx context.Context, opts *serveOptions) error {
	srv, err := a.buildServer(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Close(shutdownCtx); err != nil {
			logging.Warn().Add(logging.ErrorField(err)).Msg("shutdown incomplete")
		}
	}()

	if opts.transport != "" {
		srv.Config.Server.Transport = opts.transport
	}
	if opts.addr != "" {
		srv.Config.Server.Addr = opts.addr
	}

	if opts.watch && a.configPath != "" {
		loader := infraconfig.NewLoader(a.loaderOpts...)
		watcher := infraconfig.NewWatcher(a.configPath, loader,
			func(cfg *config.ServerConfig) { srv.ApplyConfig(cfg) },
			func(err error) {
				logging.Warn().
					Add(logging.Component("config")).
					Add(logging.ErrorField(err)).
					Msg("configuration reload failed")
			})
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logging.Error().Add(logging.ErrorField(err)).Msg("configuration watcher stopped")
			}
		}()
	}

	return srv.Serve(ctx)
}
