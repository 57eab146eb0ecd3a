package commands

import (
	"encoding/base64"
	"fmt"

	"quantum-ratchet/crypto/kem"
	"quantum-ratchet/crypto/memzero"

	"github.com/spf13/cobra"
)

func encapsulateCmd() *cobra.Command {
	var peer string
	cmd := &cobra.Command{
		Use:   "encapsulate",
		Short: "Create a shared secret for a peer's verified public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			spk, err := loadPublicKey(publicKeyPath(peer))
			if err != nil {
				return err
			}
			ct, secret, err := kem.Encapsulate(spk.KEMPublicKey)
			if err != nil {
				return err
			}
			defer memzero.Zero(secret)

			logger.Infof("Encapsulated to %s", spk.Username)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ciphertext: %s\n", base64.StdEncoding.EncodeToString(ct))
			fmt.Fprintf(out, "Secret: %s\n", kem.EncodeSecret(secret))
			return nil
		},
	}
	cmd.Flags().StringVar(&peer, "peer", "", "username whose public key to encapsulate to")
	cmd.MarkFlagRequired("peer")
	return cmd
}

func decapsulateCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "decapsulate <ciphertext>",
		Short: "Recover the shared secret from a KEM ciphertext",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys privateKeyFile
			if err := readJSON(privateKeyPath(user), &keys); err != nil {
				return fmt.Errorf("failed to read private key: %w", err)
			}
			defer memzero.Zero(keys.KEMPrivateKey)

			ct, err := base64.StdEncoding.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("ciphertext is not base64: %w", err)
			}
			secret, err := kem.Decapsulate(keys.KEMPrivateKey, ct)
			if err != nil {
				return err
			}
			defer memzero.Zero(secret)

			fmt.Fprintf(cmd.OutOrStdout(), "Secret: %s\n", kem.EncodeSecret(secret))
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "own username")
	cmd.MarkFlagRequired("user")
	return cmd
}
