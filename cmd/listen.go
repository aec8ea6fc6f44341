package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"oneclick_bridge/contract"
	"oneclick_bridge/transport"
)

func newListenCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Subscribe to the event channel and print events",
		RunE: func(cmd *cobra.Command, args []string) error {
			stream, err := transport.NewClient(c.cfg.ListenAddr).Events(cmd.Context())
			if err != nil {
				return err
			}
			defer stream.Close()
			go func() {
				<-cmd.Context().Done()
				_ = stream.Close()
			}()

			for {
				event, err := stream.Next()
				if errors.Is(err, io.EOF) {
					fmt.Fprintln(cmd.OutOrStdout(), yellow("stream ended"))
					return nil
				}
				if err != nil {
					return err
				}
				printEvent(cmd.OutOrStdout(), event)
			}
		},
	}
}

func printEvent(w io.Writer, event contract.Event) {
	label := green(string(event.Type))
	if event.Type == contract.FailureEvent || event.Type == contract.LoginFailureEvent {
		label = red(string(event.Type))
	}
	raw, err := json.Marshal(event.Fields)
	if err != nil {
		raw = []byte(err.Error())
	}
	fmt.Fprintf(w, "%s %s\n", label, raw)
}
