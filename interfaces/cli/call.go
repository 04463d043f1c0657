package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/geo-mcp/application"
)

// ErrCallFailed is returned when a call ends in a protocol error. The
// envelope has already been printed.
var ErrCallFailed = errors.New("tool call failed")

// callOptions holds options for the call command.
type callOptions struct {
	argsFile string
}

// newCallCmd creates the call command.
func (a *App) newCallCmd() *cobra.Command {
	opts := &callOptions{}

	cmd := &cobra.Command{
		Use:   "call <tool> [json-arguments]",
		Short: "Call a single tool and print the result",
		Long: `Call a tool once through the full pipeline and print the result.

Successful calls print the tool's JSON result. Protocol failures print the
error envelope and exit non-zero.

Examples:
  geo-mcp call geocode '{"address":"Brandenburger Tor, Berlin"}'
  geo-mcp call reverse_geocode '{"latitude":52.5163,"longitude":13.3777}'
  geo-mcp call imagery_order --args-file order.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := callArguments(args, opts.argsFile)
			if err != nil {
				return err
			}

			srv, err := a.buildServer(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close(cmd.Context())

			reply := srv.Call(cmd.Context(), application.CallRequest{ToolName: args[0], Arguments: raw})
			return a.printReply(reply)
		},
	}

	cmd.Flags().StringVar(&opts.argsFile, "args-file", "", "Read JSON arguments from a file (- for stdin)")
	return cmd
}

func callArguments(args []string, argsFile string) (json.RawMessage, error) {
	switch {
	case len(args) == 2 && argsFile != "":
		return nil, errors.New("pass arguments inline or with --args-file, not both")
	case len(args) == 2:
		return json.RawMessage(args[1]), nil
	case argsFile == "-":
		data, err := io.ReadAll(os.Stdin)
		return data, err
	case argsFile != "":
		data, err := os.ReadFile(argsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read arguments: %w", err)
		}
		return data, nil
	default:
		return nil, nil
	}
}

// printReply writes the response text or the error envelope.
func (a *App) printReply(reply application.Reply) error {
	if reply.OK() {
		_, _ = fmt.Fprintln(a.stdout, reply.Response.Text())
		return nil
	}
	data, err := json.MarshalIndent(reply.Error, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.stdout, string(data))
	return fmt.Errorf("%w: %s", ErrCallFailed, reply.Error.Error.Code)
}
