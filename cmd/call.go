package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"oneclick_bridge/contract"
	"oneclick_bridge/transport"
)

func newCallCommand(c *cli) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "call <method> [json-args]",
		Short: "Send one command to a running host",
		Example: `  oneclick-bridge call initSdk '{"token":"t","ak":"a","sk":"s"}'
  oneclick-bridge call getSupportsOneClickLogin`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) == 2 {
				raw := json.RawMessage(args[1])
				if !json.Valid(raw) {
					return fmt.Errorf("args is not valid JSON: %s", args[1])
				}
				params = raw
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			resp, err := transport.NewClient(c.cfg.ListenAddr).Call(ctx, contract.Method(args[0]), params)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for the reply")
	return cmd
}

func printResponse(w io.Writer, resp contract.Response) error {
	switch resp.Code {
	case contract.CodeSuccess:
		fmt.Fprintf(w, "%s %s\n", green("ok"), resp.Method)
	case contract.CodeNotImplemented:
		fmt.Fprintf(w, "%s %s\n", yellow("not implemented"), resp.Method)
		return nil
	default:
		fmt.Fprintf(w, "%s %s\n", red("error"), resp.Method)
	}
	var body any = resp.Data
	if resp.Error != nil {
		body = resp.Error
	}
	out, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(out))
	return nil
}
