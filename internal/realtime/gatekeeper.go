package realtime

import (
	"strings"

	"github.com/tabia/api/data/model"
	"github.com/tabia/api/internal/errors"
	"github.com/tabia/api/internal/instance"
	"github.com/tabia/api/internal/svc/auth"
)

// Gatekeeper validates the credential presented at connection
// establishment. The resulting identity is attached to the connection
// for its whole life; tokens are not re-verified per message.
type Gatekeeper struct {
	auth instance.Authorizer
}

func NewGatekeeper(a instance.Authorizer) *Gatekeeper {
	return &Gatekeeper{auth: a}
}

// Authenticate parses a "Bearer <token>" header value and verifies the
// token with the identity resolver.
func (g *Gatekeeper) Authenticate(header string) (model.Identity, errors.APIError) {
	if header == "" {
		return model.Identity{}, errors.ErrMissingCredential()
	}

	s := strings.Split(header, "Bearer ")
	if len(s) != 2 {
		return model.Identity{}, errors.ErrMalformedCredential().SetDetail("Bad Authorization Header")
	}

	claims := &auth.JWTClaimUser{}

	if _, err := g.auth.VerifyJWT(strings.Split(s[1], "."), claims); err != nil {
		return model.Identity{}, errors.ErrInvalidCredential().SetDetail(err.Error())
	}

	if claims.UserID == "" {
		return model.Identity{}, errors.ErrInvalidCredential().SetDetail("Bad Token")
	}

	return model.Identity{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
	}, nil
}
