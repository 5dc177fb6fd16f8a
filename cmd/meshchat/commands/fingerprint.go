package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"meshchat/internal/services/identity"
	"meshchat/internal/store"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return errNoPassphrase
			}
			fp, err := identity.New(store.NewIdentityFileStore(cfg.Home)).FingerprintIdentity(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\n", fp)
			return nil
		},
	}
}
