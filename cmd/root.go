// Package cmd implements the oneclick-bridge command line: a loopback host
// for the login bridge and small clients for driving it.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"oneclick_bridge/config"
	"oneclick_bridge/credentials"
	"oneclick_bridge/logging"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// cli holds state shared by subcommands after PersistentPreRunE.
type cli struct {
	configPath string
	envFile    string
	addr       string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "oneclick-bridge",
		Short:         "Carrier one-click login bridge",
		Long:          "Hosts the one-click login bridge on a loopback port and drives it from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default ./oneclick-bridge.yaml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "Optional .env file")
	root.PersistentFlags().StringVar(&c.addr, "addr", "", "Host address, overrides listen_addr")

	root.AddCommand(newServeCommand(c))
	root.AddCommand(newCallCommand(c))
	root.AddCommand(newListenCommand(c))
	root.AddCommand(newLoginCommand(c))
	root.AddCommand(newCredentialsCommand(c))
	root.AddCommand(newVersionCommand())
	return root
}

func (c *cli) load() error {
	if err := credentials.LoadDotEnv(c.envFile); err != nil {
		return fmt.Errorf("load %s: %w", c.envFile, err)
	}
	cfg, err := config.Load(viper.New(), c.configPath)
	if err != nil {
		return err
	}
	if c.addr != "" {
		cfg.ListenAddr = c.addr
	}
	c.cfg = cfg
	c.logger = logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return nil
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}
