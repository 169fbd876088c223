package driven

// TokenProvider supplies API keys and OAuth tokens on demand.
// Secret storage mechanics live behind this interface; the core only
// ever asks for a token by provider name.
type TokenProvider interface {
	// Token returns the credential for the named provider (e.g.,
	// "openai", "google"). Returns domain.ErrCredentialMissing when no
	// credential is configured.
	Token(provider string) (string, error)
}
