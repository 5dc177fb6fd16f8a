package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"meshchat/internal/app"
	"meshchat/internal/services/identity"
	"meshchat/internal/store"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and write a default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return errNoPassphrase
			}
			ids := identity.New(store.NewIdentityFileStore(cfg.Home))
			if _, err := ids.LoadIdentity(passphrase); err == nil && !force {
				return fmt.Errorf("identity already exists in %s (use --force to replace it)", cfg.Home)
			}
			_, fp, err := ids.GenerateIdentity(passphrase)
			if err != nil {
				return err
			}

			path := filepath.Join(cfg.Home, app.ConfigFilename)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if err := app.WriteConfig(path, *cfg); err != nil {
					return err
				}
				fmt.Printf("Config written to %s\n", path)
			}
			fmt.Printf("Identity created.\nFingerprint: %s\n", fp)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}
