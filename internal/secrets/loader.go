// Package secrets resolves secret values from config or files.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Load resolves a secret named name. A non-empty file path takes precedence
// over the inline value; the result is always trimmed. An error is returned
// when neither source yields a usable secret.
func Load(name, value, file string) (string, error) {
	if name = strings.TrimSpace(name); name == "" {
		name = "secret"
	}

	if file = strings.TrimSpace(file); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(value)
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}
