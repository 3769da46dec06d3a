package config

import (
	"fmt"
	"os"
	"strings"
)

// TokenEnvVar is consulted when no access token is given explicitly.
const TokenEnvVar = "YOUTRACK_TOKEN"

// ResolveToken returns the access token for value, which is either the token
// itself or the path of a file containing it. An empty value falls back to
// the YOUTRACK_TOKEN environment variable.
func ResolveToken(value string) (string, error) {
	if value == "" {
		value = os.Getenv(TokenEnvVar)
	}
	if value == "" {
		return "", fmt.Errorf("access token required: set --access-token flag or %s environment variable", TokenEnvVar)
	}

	info, err := os.Stat(value)
	if err != nil || info.IsDir() {
		return strings.TrimSpace(value), nil
	}

	data, err := os.ReadFile(value)
	if err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", value, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", value)
	}
	return token, nil
}
