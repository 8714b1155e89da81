package security

import "errors"

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidIssuer = errors.New("invalid issuer")
	ErrTokenExpired  = errors.New("token expired or not valid yet")
	ErrInvalidClaims = errors.New("invalid session claims")
)
