package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/geo-mcp/application"
	"github.com/felixgeelhaar/geo-mcp/interfaces/api"
)

// lineReader is the part of readline the console loop needs.
type lineReader interface {
	Readline() (string, error)
}

// newConsoleCmd creates the interactive console command.
func (a *App) newConsoleCmd() *cobra.Command {
	var historyFile string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Call tools interactively",
		Long: `Start an interactive console against an in-process server.

Each line is a tool name followed by its JSON arguments:

  geo> geocode {"address":"Alexanderplatz, Berlin","limit":3}
  geo> reverse_geocode {"latitude":48.8584,"longitude":2.2945}

Console commands:
  :tools     list registered tools
  :metrics   print recorded tool metrics
  :orders    print tracked imagery order lifecycles
  :quit      leave the console`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := a.buildServer(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close(cmd.Context())

			items := []readline.PrefixCompleterInterface{
				readline.PcItem(":tools"),
				readline.PcItem(":metrics"),
				readline.PcItem(":orders"),
				readline.PcItem(":quit"),
			}
			for _, name := range srv.Registry.Names() {
				items = append(items, readline.PcItem(name))
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "geo> ",
				HistoryFile:     historyFile,
				AutoComplete:    readline.NewPrefixCompleter(items...),
				InterruptPrompt: "^C",
				EOFPrompt:       ":quit",
				Stdin:           a.stdin,
				Stdout:          a.stdout,
				Stderr:          a.stderr,
			})
			if err != nil {
				return fmt.Errorf("failed to start console: %w", err)
			}
			defer rl.Close()

			return a.runConsole(cmd.Context(), srv, rl)
		},
	}

	cmd.Flags().StringVar(&historyFile, "history", "", "File to keep console history in")
	return cmd
}

// runConsole reads lines until :quit, EOF or cancellation.
func (a *App) runConsole(ctx context.Context, srv *api.Server, rl lineReader) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			quit, err := a.consoleCommand(ctx, srv, line)
			if err != nil {
				_, _ = fmt.Fprintf(a.stdout, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		name, rawArgs, _ := strings.Cut(line, " ")
		reply := srv.Call(ctx, application.CallRequest{
			ToolName:  name,
			Arguments: json.RawMessage(strings.TrimSpace(rawArgs)),
		})
		// Protocol errors are printed and the session continues.
		_ = a.printReply(reply)
	}
}

func (a *App) consoleCommand(ctx context.Context, srv *api.Server, line string) (bool, error) {
	switch line {
	case ":quit", ":q", ":exit":
		return true, nil
	case ":tools":
		return false, a.printTools(srv.Registry.ListTools(), false)
	case ":metrics":
		return false, a.printMetrics(ctx, srv)
	case ":orders":
		return false, a.printOrders(srv)
	default:
		return false, fmt.Errorf("unknown console command %q", line)
	}
}

func (a *App) printMetrics(ctx context.Context, srv *api.Server) error {
	if srv.Telemetry == nil || !srv.Telemetry.MetricsEnabled() {
		_, _ = fmt.Fprintln(a.stdout, "metrics are disabled")
		return nil
	}
	samples, err := srv.Telemetry.Snapshot(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "METRIC\tATTRIBUTES\tVALUE\tCOUNT")
	for _, s := range samples {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%g\t%d\n", s.Name, formatAttrs(s.Attributes), s.Value, s.Count)
	}
	return w.Flush()
}

func (a *App) printOrders(srv *api.Server) error {
	if srv.Tracker == nil {
		_, _ = fmt.Fprintln(a.stdout, "imagery is disabled")
		return nil
	}
	snapshots := srv.Tracker.List()
	if len(snapshots) == 0 {
		_, _ = fmt.Fprintln(a.stdout, "no orders tracked")
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ORDER\tSTATUS\tTERMINAL\tTRANSITIONS")
	for _, s := range snapshots {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%d\n", s.OrderID, s.Status, s.Terminal, len(s.History))
	}
	return w.Flush()
}

func formatAttrs(attrs map[string]string) string {
	if len(attrs) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, ",")
}
