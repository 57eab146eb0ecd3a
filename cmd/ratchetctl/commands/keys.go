package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quantum-ratchet/crypto/kem"
	"quantum-ratchet/crypto/key_ed25519"
	"quantum-ratchet/protocol/fingerprint"

	"github.com/spf13/cobra"
)

// privateKeyFile is what keygen stores next to the public key; it never
// leaves the owner's machine.
type privateKeyFile struct {
	Username      string                 `json:"username"`
	KEMPrivateKey []byte                 `json:"kem_private_key"`
	IdentityKey   key_ed25519.PrivateKey `json:"identity_key"`
}

func publicKeyPath(user string) string {
	return filepath.Join(keyDir, strings.ToLower(user)+".pub.json")
}

func privateKeyPath(user string) string {
	return filepath.Join(keyDir, strings.ToLower(user)+".key.json")
}

func writeJSON(path string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// loadPublicKey reads and verifies a signed KEM public key.
func loadPublicKey(path string) (*kem.SignedPublicKey, error) {
	var spk kem.SignedPublicKey
	if err := readJSON(path, &spk); err != nil {
		return nil, fmt.Errorf("failed to read public key %s: %w", path, err)
	}
	if err := spk.Verify(); err != nil {
		return nil, fmt.Errorf("public key %s has a bad signature: %w", path, err)
	}
	return &spk, nil
}

func keygenCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signed Kyber768 key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				return fmt.Errorf("--user is required")
			}
			pub, priv, err := kem.GenerateKeyPair()
			if err != nil {
				return err
			}
			identity, err := key_ed25519.NewPair()
			if err != nil {
				return err
			}
			spk, err := kem.SignPublicKey(user, pub, identity)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(keyDir, 0o700); err != nil {
				return err
			}
			if err := writeJSON(privateKeyPath(user), privateKeyFile{
				Username:      spk.Username,
				KEMPrivateKey: priv,
				IdentityKey:   identity.Priv,
			}, 0o600); err != nil {
				return err
			}
			if err := writeJSON(publicKeyPath(user), spk, 0o644); err != nil {
				return err
			}

			logger.Infof("Keys for %s written to %s", spk.Username, keyDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fingerprint.String(fingerprint.Fingerprint(spk)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "username the key belongs to")
	return cmd
}

func fingerprintCmd() *cobra.Command {
	var user, peer string
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print a key fingerprint, or the safety number with --peer",
		RunE: func(cmd *cobra.Command, args []string) error {
			own, err := loadPublicKey(publicKeyPath(user))
			if err != nil {
				return err
			}
			if peer == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fingerprint.String(fingerprint.Fingerprint(own)))
				return nil
			}
			other, err := loadPublicKey(publicKeyPath(peer))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Safety number: %s\n", fingerprint.SafetyNumber(own, other))
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "own username")
	cmd.Flags().StringVar(&peer, "peer", "", "peer username")
	cmd.MarkFlagRequired("user")
	return cmd
}
