package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"oneclick_bridge/credentials"
)

func newCredentialsCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the stored SDK registration credentials",
	}

	var creds credentials.Credentials
	set := &cobra.Command{
		Use:   "set",
		Short: "Store token, ak and sk in the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials.Open()
			if err != nil {
				return err
			}
			if err := store.Save(creds); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), green("credentials saved"))
			return nil
		},
	}
	set.Flags().StringVar(&creds.Token, "token", "", "Registration token")
	set.Flags().StringVar(&creds.AK, "ak", "", "Access key")
	set.Flags().StringVar(&creds.SK, "sk", "", "Secret key")
	_ = set.MarkFlagRequired("token")
	_ = set.MarkFlagRequired("ak")
	_ = set.MarkFlagRequired("sk")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the stored credentials with the secret masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials.Open()
			if err != nil {
				return err
			}
			stored, err := store.Load()
			if errors.Is(err, credentials.ErrNotFound) {
				fmt.Fprintln(cmd.OutOrStdout(), yellow("no stored credentials"))
				return nil
			}
			if err != nil {
				return err
			}
			masked := stored.Masked()
			fmt.Fprintf(cmd.OutOrStdout(), "token %s\nak    %s\nsk    %s\n", masked.Token, masked.AK, masked.SK)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := credentials.Open()
			if err != nil {
				return err
			}
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), green("credentials cleared"))
			return nil
		},
	}

	cmd.AddCommand(set, show, clearCmd)
	return cmd
}
