package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"oneclick_bridge/transport"
)

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge host backed by the SDK emulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(c.cfg, c.logger)
			if err != nil {
				return err
			}
			if err := rt.start(); err != nil {
				return err
			}
			addr := rt.host.Addr()
			fmt.Fprintf(cmd.OutOrStdout(), "%s listening on %s\n", green("bridge"), bold(addr))
			fmt.Fprintf(cmd.OutOrStdout(), "  methods %s\n  events  %s\n",
				cyan("http://"+addr+transport.MethodPath()), cyan("ws://"+addr+transport.EventPath()))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			c.logger.Info("shutting down")
			return rt.close(shutdown)
		},
	}
}
