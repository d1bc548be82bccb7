package auth

import (
	"github.com/tabia/api/internal/instance"
)

type authorizer struct {
	jwtSecret string
	issuer    string
}

type Options struct {
	JWTSecret string
	Issuer    string
}

func New(opt Options) instance.Authorizer {
	return &authorizer{
		jwtSecret: opt.JWTSecret,
		issuer:    opt.Issuer,
	}
}
