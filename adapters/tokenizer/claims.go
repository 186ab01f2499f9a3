package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with session-specific ones.
// The subject carries the email; the JWT ID (jti) is the credential
// identifier used for revocation.
type SessionClaims struct {
	jwt.RegisteredClaims
	AccountIDs []string `json:"accounts"`
}
