// Package cli provides the geo-mcp command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	geomcp "github.com/felixgeelhaar/geo-mcp"
	"github.com/felixgeelhaar/geo-mcp/domain/config"
	infraconfig "github.com/felixgeelhaar/geo-mcp/infrastructure/config"
	"github.com/felixgeelhaar/geo-mcp/infrastructure/logging"
	"github.com/felixgeelhaar/geo-mcp/interfaces/api"
)

// Version information set at build time.
var (
	Version   = geomcp.Version
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdin  io.ReadCloser
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	serverOpts []api.Option
	loaderOpts []infraconfig.LoaderOption
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "geo-mcp",
		Short: "MCP server for geocoding and satellite imagery ordering",
		Long: `geo-mcp is a Model Context Protocol server exposing geocoding tools
backed by Nominatim and satellite imagery search and ordering tools.

Tools validate their arguments against a JSON schema before they run.
Provider failures come back as {"success": false, "error": ...} results.
Protocol failures come back as coded error envelopes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.initLogging()
		},
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file (YAML or JSON)")
	app.root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Override the configured log level")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newServeCmd(),
		app.newToolsCmd(),
		app.newCallCmd(),
		app.newConsoleCmd(),
		app.newConfigCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithInput sets a custom input reader for the console.
func (a *App) WithInput(stdin io.ReadCloser) *App {
	a.stdin = stdin
	return a
}

// WithServerOptions passes options to every server the CLI assembles.
func (a *App) WithServerOptions(opts ...api.Option) *App {
	a.serverOpts = append(a.serverOpts, opts...)
	return a
}

// WithLoaderOptions passes options to the configuration loader.
func (a *App) WithLoaderOptions(opts ...infraconfig.LoaderOption) *App {
	a.loaderOpts = append(a.loaderOpts, opts...)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// initLogging sets up bolt before the configuration is read so load
// failures are logged consistently. Logs always go to stderr.
func (a *App) initLogging() {
	cfg := logging.DefaultConfig()
	cfg.Output = a.stderr
	if a.logLevel != "" {
		cfg.Level = a.logLevel
	}
	logging.Init(cfg)
}

// loadConfig reads the configuration file, or the defaults when no path is set.
func (a *App) loadConfig() (*config.ServerConfig, error) {
	cfg, err := infraconfig.NewLoader(a.loaderOpts...).LoadFile(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: a.stderr})
	return cfg, nil
}

// buildServer loads configuration and assembles a server.
func (a *App) buildServer(ctx context.Context) (*api.Server, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	opts := append([]api.Option{api.WithVersion(Version)}, a.serverOpts...)
	return api.New(ctx, cfg, opts...)
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "geo-mcp version %s\n", Version)
			_, _ = fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			_, _ = fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
