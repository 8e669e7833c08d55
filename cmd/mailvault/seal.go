package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vdavid/mailvault/internal/config"
	"github.com/vdavid/mailvault/internal/crypto"
)

func newSealPasswordCmd() *cobra.Command {
	var (
		keyringUser string
		generateKey bool
	)

	cmd := &cobra.Command{
		Use:   "seal-password",
		Short: "Prepare an IMAP password for an account file",
		Long: `Reads a password from stdin and prints it sealed with
MAILVAULT_ENCRYPTION_KEY_BASE64, for use as imap.password_sealed.
With --keyring USERNAME the password is stored in the OS keyring instead,
for use with imap.password_keyring: true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if generateKey {
				key, err := crypto.GenerateKey()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, key)
				return nil
			}

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			if keyringUser != "" {
				if err := (config.Keyring{}).Set(keyringUser, password); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Stored password for %s in the keyring\n", keyringUser)
				return nil
			}

			cfg := config.Load()
			if cfg.EncryptionKeyBase64 == "" {
				return &config.ConfigError{Field: "MAILVAULT_ENCRYPTION_KEY_BASE64", Msg: "is required to seal a password"}
			}
			encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
			if err != nil {
				return &config.ConfigError{Field: "MAILVAULT_ENCRYPTION_KEY_BASE64", Msg: "is not a valid key", Err: err}
			}

			sealed, err := encryptor.Seal(password)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, sealed)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyringUser, "keyring", "", "Store the password in the OS keyring under this username")
	cmd.Flags().BoolVar(&generateKey, "generate-key", false, "Print a new random encryption key and exit")

	return cmd
}

// readPassword reads the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password from stdin: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}
