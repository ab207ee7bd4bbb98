// Package passphrase resolves a keystore passphrase from an environment
// variable or by prompting the operator on the terminal.
package passphrase

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// EnvVar is checked before falling back to an interactive prompt.
const EnvVar = "LENDINGD_KEYSTORE_PASSPHRASE"

// Prompt resolves the passphrase for decrypting a reserve/market keypair
// file. The environment variable takes precedence so scripted deployments
// never have to attach a terminal.
func Prompt() (string, error) {
	if value, ok := os.LookupEnv(EnvVar); ok {
		if strings.TrimSpace(value) == "" {
			return "", fmt.Errorf("%s is set but empty", EnvVar)
		}
		return value, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("keystore passphrase required; set %s or run interactively", EnvVar)
	}

	fmt.Fprint(os.Stderr, "Enter keystore passphrase: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}

	passphrase := string(raw)
	if strings.TrimSpace(passphrase) == "" {
		return "", errors.New("keystore passphrase cannot be empty")
	}
	return passphrase, nil
}
