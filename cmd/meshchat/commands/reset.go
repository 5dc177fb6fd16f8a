package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe messages, channels, caches and keys and start over with a new identity",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if passphrase == "" {
				return errNoPassphrase
			}
			if !yes {
				return fmt.Errorf("this deletes all local data; rerun with --yes to confirm")
			}
			a, _ := newApp()
			if _, err := a.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, a.Close()) }()

			if err := a.ResetIdentity(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("New identity.\nFingerprint: %s\nNickname: %s\n", a.Fingerprint(), a.State.Nickname.Load())
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}
