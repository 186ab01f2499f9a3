package ports

import "github.com/redlobsta/portalauth/core"

// Tokenizer converts between session credentials and their signed wire form
type Tokenizer interface {
	// CredentialToToken signs a credential into a client-held artifact
	CredentialToToken(cred *core.SessionCredential) (string, error)

	// TokenToCredential verifies signature and standard claims (including
	// expiry) and returns the decoded credential
	TokenToCredential(token string) (*core.SessionCredential, error)

	// DecodeCredential verifies the signature but tolerates an expired
	// credential. Used during revocation, where a near-expiry artifact
	// must still yield its credential ID.
	DecodeCredential(token string) (*core.SessionCredential, error)
}
