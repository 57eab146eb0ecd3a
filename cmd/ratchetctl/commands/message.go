package commands

import (
	"errors"
	"fmt"

	"quantum-ratchet/protocol/session"

	"github.com/spf13/cobra"
)

// seal and open run a fresh session, so the nth argument uses the nth key of
// the chain. Handy for checking interoperability by hand.

func sealCmd() *cobra.Command {
	var secret, self, peer string
	cmd := &cobra.Command{
		Use:   "seal <message>...",
		Short: "Encrypt messages as the first messages of a conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.NewFromEncoded(cfg, secret, self, peer, session.WithLogger(logger))
			if err != nil {
				return err
			}
			defer s.Wipe()

			for _, msg := range args {
				ct, err := s.Encrypt(msg)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ct)
			}
			return nil
		},
	}
	messageFlags(cmd, &secret, &self, &peer)
	return cmd
}

func openCmd() *cobra.Command {
	var secret, self, peer string
	cmd := &cobra.Command{
		Use:   "open <envelope>...",
		Short: "Decrypt the first messages received in a conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.NewFromEncoded(cfg, secret, self, peer, session.WithLogger(logger))
			if err != nil {
				return err
			}
			defer s.Wipe()

			var failed int
			for i, text := range args {
				pt, err := s.Decrypt(text)
				if errors.Is(err, session.ErrAuthenticationFailure) {
					failed++
					logger.Warnf("Message %d: %v", i+1, err)
					pt = cfg.FailurePlaceholder
				} else if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pt)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d messages failed to decrypt", failed, len(args))
			}
			return nil
		},
	}
	messageFlags(cmd, &secret, &self, &peer)
	return cmd
}

func messageFlags(cmd *cobra.Command, secret, self, peer *string) {
	cmd.Flags().StringVar(secret, "secret", "", "shared secret, base64 or hex")
	cmd.Flags().StringVar(self, "self", "", "own identity")
	cmd.Flags().StringVar(peer, "peer", "", "peer identity")
	cmd.MarkFlagRequired("secret")
	cmd.MarkFlagRequired("self")
	cmd.MarkFlagRequired("peer")
}
