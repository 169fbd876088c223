package google

import (
	"golang.org/x/oauth2"

	"github.com/recall-labs/recall-cli/internal/core/ports/driven"
)

// ProviderName is the credential provider key for Google APIs.
const ProviderName = "google"

// NewTokenSource builds an oauth2.TokenSource from the credential
// provider. The OAuth handshake itself happens outside the core; the
// provider hands back whatever access token it holds.
func NewTokenSource(provider driven.TokenProvider) (oauth2.TokenSource, error) {
	token, err := provider.Token(ProviderName)
	if err != nil {
		return nil, err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), nil
}
