package core

import "errors"

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenAlreadyUsed = errors.New("token has already been used")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrSessionRevoked   = errors.New("session has been revoked")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrConfigMissing    = errors.New("required configuration missing")
)
