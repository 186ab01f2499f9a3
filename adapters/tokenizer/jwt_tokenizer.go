package tokenizer

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/redlobsta/portalauth/core"
	"github.com/redlobsta/portalauth/ports"
)

const AudienceSession = "portal:session"

// JWTTokenizer implements the Tokenizer interface using HS256-signed JWTs.
// The MAC key is symmetric: every instance that can verify can also sign,
// which is the intended model for a single trust domain.
type JWTTokenizer struct {
	signKey []byte
}

// NewJWTTokenizer creates a new JWT tokenizer from the shared signing secret
func NewJWTTokenizer(secret []byte) ports.Tokenizer {
	return &JWTTokenizer{signKey: secret}
}

// CredentialToToken converts a SessionCredential to a signed JWT
func (j *JWTTokenizer) CredentialToToken(cred *core.SessionCredential) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.Email,
			ID:        cred.ID,
			ExpiresAt: jwt.NewNumericDate(cred.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(cred.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		AccountIDs: cred.AccountIDs,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// TokenToCredential verifies a signed JWT and returns the credential.
// Returns core.ErrTokenExpired past expiry and core.ErrInvalidSignature
// on MAC mismatch or tampering.
func (j *JWTTokenizer) TokenToCredential(tokenStr string) (*core.SessionCredential, error) {
	return j.parse(tokenStr)
}

// DecodeCredential verifies only the signature, tolerating expired claims.
// Revocation needs the credential ID out of artifacts that may already be
// past their expiry.
func (j *JWTTokenizer) DecodeCredential(tokenStr string) (*core.SessionCredential, error) {
	return j.parse(tokenStr, jwt.WithoutClaimsValidation())
}

func (j *JWTTokenizer) parse(tokenStr string, opts ...jwt.ParserOption) (*core.SessionCredential, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return j.signKey, nil
	}, opts...)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, core.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, core.ErrInvalidSignature
	default:
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	if len(claims.Audience) == 0 || claims.Audience[0] != AudienceSession {
		return nil, core.ErrInvalidToken
	}

	cred := &core.SessionCredential{
		ID:         claims.ID,
		Email:      claims.Subject,
		AccountIDs: claims.AccountIDs,
	}
	if claims.IssuedAt != nil {
		cred.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
	}

	return cred, nil
}
