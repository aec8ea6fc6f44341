package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"oneclick_bridge/contract"
	"oneclick_bridge/credentials"
	"oneclick_bridge/transport"
)

func newLoginCommand(c *cli) *cobra.Command {
	var (
		logo     string
		language string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run a full one-click login against a running host",
		Long: `Registers with stored credentials (or ONECLICK_TOKEN/AK/SK), optionally
sets the language and logo, then shows the login and waits for its outcome.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials.Open()
			if err != nil {
				c.logger.Warn("keyring unavailable, using environment only", "error", err)
			}
			creds, err := credentials.Resolve(store)
			if err != nil {
				return fmt.Errorf("%w: run 'oneclick-bridge credentials set' or export %s/%s/%s",
					err, credentials.EnvToken, credentials.EnvAK, credentials.EnvSK)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			client := transport.NewClient(c.cfg.ListenAddr)

			stream, err := client.Events(ctx)
			if err != nil {
				return err
			}
			defer stream.Close()
			go func() {
				<-ctx.Done()
				_ = stream.Close()
			}()

			steps := []struct {
				method contract.Method
				args   any
				skip   bool
			}{
				{contract.SetLanguageMethod, map[string]string{"languageCode": language}, language == ""},
				{contract.InitSdkMethod, creds.Args(), false},
				{contract.GetSupportsOneClickLoginMethod, nil, false},
				{contract.SetLogoMethod, map[string]string{"resName": logo}, logo == ""},
				{contract.ShowLoginMethod, nil, false},
			}
			for _, step := range steps {
				if step.skip {
					continue
				}
				resp, err := client.Call(ctx, step.method, step.args)
				if err != nil {
					return err
				}
				if err := printResponse(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
				if resp.Code != contract.CodeSuccess {
					return fmt.Errorf("%s failed", step.method)
				}
				if supported, ok := resp.Data.(bool); ok && !supported {
					return fmt.Errorf("%s returned false", step.method)
				}
			}

			for {
				event, err := stream.Next()
				if errors.Is(err, io.EOF) {
					return errors.New("event stream ended before login finished")
				}
				if err != nil {
					if ctx.Err() != nil {
						return fmt.Errorf("waiting for login outcome: %w", ctx.Err())
					}
					return err
				}
				printEvent(cmd.OutOrStdout(), event)
				switch event.Type {
				case contract.LoginSuccessEvent:
					return nil
				case contract.LoginFailureEvent:
					return fmt.Errorf("login failed: %s", event.String("code"))
				}
			}
		},
	}
	cmd.Flags().StringVar(&logo, "logo", "", "Resource name for the login page logo")
	cmd.Flags().StringVar(&language, "language", "", "BCP-47 language code")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")
	return cmd
}
