package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// JWTClaimUser is the verified claim set carried by an access token.
// Short keys keep the token compact.
type JWTClaimUser struct {
	UserID      string `json:"u"`
	DisplayName string `json:"n"`
	Email       string `json:"e"`

	jwt.RegisteredClaims
}

func (a *authorizer) SignJWT(claim jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claim)

	return token.SignedString([]byte(a.jwtSecret))
}

func (a *authorizer) VerifyJWT(token []string, out jwt.Claims) (*jwt.Token, error) {
	result, err := jwt.ParseWithClaims(
		strings.Join(token, "."),
		out,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("bad jwt signing method, expected HMAC but got %v", t.Header["alg"])
			}

			return []byte(a.jwtSecret), nil
		},
	)

	return result, err
}
