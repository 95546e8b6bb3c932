package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keybase/fsse/libsearch"
)

func newKeygenCmd() *cobra.Command {
	var passphrase, saltHex string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a search key",
		Long: `Generate a random 128-bit search key, or derive one from a passphrase
with PBKDF2.  A derived key needs the same salt every time; when no salt is
given a random one is generated and printed to stderr.

Examples:
  fsse keygen
  fsse keygen --passphrase "correct horse" --salt 00112233445566778899aabbccddeeff`,
		Args: cobra.NoArgs,
		// Key generation needs neither the configuration nor the logger.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				if saltHex != "" {
					return fmt.Errorf("--salt requires --passphrase")
				}
				key, err := libsearch.GenerateKey()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), key)
				return nil
			}

			var salt []byte
			var err error
			if saltHex == "" {
				salt, err = libsearch.GenerateSalt(16)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "salt: %x\n", salt)
			} else if salt, err = hex.DecodeString(saltHex); err != nil {
				return fmt.Errorf("invalid --salt: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), libsearch.DeriveKey([]byte(passphrase), salt))
			return nil
		},
	}

	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Derive the key from this passphrase")
	cmd.Flags().StringVar(&saltHex, "salt", "", "Hex salt for --passphrase")

	return cmd
}
