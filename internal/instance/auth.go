package instance

import (
	"github.com/golang-jwt/jwt/v4"
)

type Authorizer interface {
	SignJWT(claim jwt.Claims) (string, error)
	VerifyJWT(token []string, out jwt.Claims) (*jwt.Token, error)
}
