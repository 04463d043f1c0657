package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	infraconfig "github.com/felixgeelhaar/geo-mcp/infrastructure/config"
)

// newConfigCmd creates the config command group.
func (a *App) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(a.newConfigValidateCmd(), a.newConfigShowCmd())
	return cmd
}

func (a *App) newConfigValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Validate a configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Provider URLs and required fields
  - Cache backend and rate limit settings
  - Environment variable references (in strict mode)

Examples:
  geo-mcp config validate -c geo-mcp.yaml
  geo-mcp config validate -c geo-mcp.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath == "" {
				return fmt.Errorf("configuration file path is required (-c flag)")
			}
			opts := append([]infraconfig.LoaderOption{infraconfig.WithValidation(true)}, a.loaderOpts...)
			if strict {
				opts = append(opts, infraconfig.WithStrictEnv(true))
			}
			if _, err := infraconfig.NewLoader(opts...).LoadFile(a.configPath); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			_, _ = fmt.Fprintf(a.stdout, "Configuration is valid: %s\n", a.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on missing environment variables")
	return cmd
}

func (a *App) newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			redact(&cfg.Imagery.APIKey)
			redact(&cfg.Delivery.S3.SecretAccessKey)
			redact(&cfg.Delivery.Azure.AccountKey)
			redact(&cfg.Delivery.Azure.ConnectionString)
			redact(&cfg.Delivery.GCS.CredentialsJSON)
			redact(&cfg.Cache.Redis.Password)

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}
}

func redact(s *string) {
	if *s != "" {
		*s = "********"
	}
}
