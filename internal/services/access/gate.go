// Package access holds the authorization decisions shared by every
// mutating operation. It has no state of its own.
package access

import (
	"github.com/mcoot/gamehost/internal/model"
)

// AuthorizeMutation allows identity to change a resource owned by
// ownerUsername. It fails with model.ErrUnauthenticated when there is no
// identity and model.ErrForbidden when the identity is not the owner.
func AuthorizeMutation(identity *model.Identity, ownerUsername string) error {
	if identity == nil {
		return model.ErrUnauthenticated
	}
	if identity.Blocked {
		return model.ErrPrincipalBlocked
	}
	if identity.Username != ownerUsername {
		return model.ErrForbidden
	}
	return nil
}

// AuthorizeLogin refuses to start a session for a blocked principal
func AuthorizeLogin(p *model.Principal) error {
	if p.Blocked {
		return model.ErrPrincipalBlocked
	}
	return nil
}
