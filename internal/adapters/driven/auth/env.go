// Package auth resolves API credentials from the process environment.
// A .env file loaded at startup feeds the same variables, so both
// shells and config-file setups work the same way.
package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/recall-labs/recall-cli/internal/core/domain"
	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

// Ensure EnvProvider implements the interface.
var _ driven.TokenProvider = (*EnvProvider)(nil)

// envVars maps provider names to their environment variables.
var envVars = map[string]string{
	"openai": "OPENAI_API_KEY",
	"google": "GOOGLE_OAUTH_TOKEN",
}

// EnvProvider reads credentials from environment variables.
type EnvProvider struct{}

// NewEnvProvider creates an environment-backed token provider.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// Token returns the credential for the named provider.
func (p *EnvProvider) Token(provider string) (string, error) {
	envVar, ok := envVars[provider]
	if !ok {
		return "", fmt.Errorf("%w: unknown provider %q", domain.ErrCredentialMissing, provider)
	}
	token := strings.TrimSpace(os.Getenv(envVar))
	if token == "" {
		return "", fmt.Errorf("%w: %s is not set", domain.ErrCredentialMissing, envVar)
	}
	return token, nil
}
