package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"meshchat/internal/app"
	"meshchat/internal/logging"
)

var (
	home       string
	cfgFile    string
	passphrase string

	cfg    *app.Config
	logger *zap.Logger
)

var errNoPassphrase = errors.New("passphrase required (-p or MESHCHAT_PASSPHRASE)")

func Execute() error {
	root := &cobra.Command{
		Use:          "meshchat",
		Short:        "Peer-to-peer mesh chat client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.LoadConfig(home, cfgFile)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(c.Home, 0o700); err != nil {
				return err
			}
			l, err := logging.New(c.Log)
			if err != nil {
				return err
			}
			if passphrase == "" {
				passphrase = os.Getenv(app.EnvPrefix + "_PASSPHRASE")
			}
			cfg, logger = c, l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.meshchat)")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default <home>/config.yaml)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")

	root.AddCommand(initCmd(), fingerprintCmd(), chatCmd(), resetCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return root.ExecuteContext(ctx)
}
