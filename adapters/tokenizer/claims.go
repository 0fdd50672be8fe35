package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the standard claims carried by an issuer bearer token
type AccessClaims struct {
	jwt.RegisteredClaims
}
