package commands

import (
	"quantum-ratchet/configs"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	keyDir   string
	logLevel string

	logger = logrus.New()
	cfg    = configs.DefaultProtocol()
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ratchetctl",
		Short:         "Key and message tool for the quantum ratchet",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger.SetLevel(lvl)
			logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	root.PersistentFlags().StringVar(&keyDir, "dir", ".", "directory holding key files")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	root.AddCommand(keygenCmd(), encapsulateCmd(), decapsulateCmd(), sealCmd(), openCmd(), fingerprintCmd())
	return root
}
