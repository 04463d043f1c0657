package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/geo-mcp/domain/tool"
)

// toolsOptions holds options for the tools command.
type toolsOptions struct {
	asJSON bool
}

// newToolsCmd creates the tools command.
func (a *App) newToolsCmd() *cobra.Command {
	opts := &toolsOptions{}

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server exposes",
		Long: `List every registered tool in registration order.

Examples:
  # Table of tools
  geo-mcp tools

  # Full definitions with input schemas
  geo-mcp tools --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := a.buildServer(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close(cmd.Context())
			return a.printTools(srv.Registry.ListTools(), opts.asJSON)
		},
	}

	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print full definitions as JSON")
	return cmd
}

func (a *App) printTools(defs []tool.Definition, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tFLAGS\tDESCRIPTION")
	for _, def := range defs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", def.Name(), flags(def.Annotations()), def.Description())
	}
	return w.Flush()
}

func flags(a tool.Annotations) string {
	var out []string
	if a.ReadOnly {
		out = append(out, "read-only")
	}
	if a.CanCache() {
		out = append(out, "cached")
	}
	if a.RequiresCredentials {
		out = append(out, "auth")
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ",")
}
