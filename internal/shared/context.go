package shared

import (
	"instauto_backend/internal/common"
	"instauto_backend/internal/session"

	"github.com/gin-gonic/gin"
)

// SetIdentity stores the verified session identity on the request.
func SetIdentity(c *gin.Context, id session.Identity) {
	c.Set(common.IdentityKey, id)
}

// IdentityFromContext retrieves the identity stored by SetIdentity.
func IdentityFromContext(c *gin.Context) (session.Identity, bool) {
	val, exists := c.Get(common.IdentityKey)
	if !exists {
		return session.Identity{}, false
	}
	id, ok := val.(session.Identity)
	return id, ok
}

// SetResolved stores the resolved identity on the request. It also sets the
// identity so handlers needing only the uid can use IdentityFromContext.
func SetResolved(c *gin.Context, r *ResolvedIdentity) {
	c.Set(common.ResolvedIdentityKey, r)
	SetIdentity(c, r.Identity)
}

// ResolvedFromContext retrieves the resolved identity stored by SetResolved.
func ResolvedFromContext(c *gin.Context) (*ResolvedIdentity, bool) {
	val, exists := c.Get(common.ResolvedIdentityKey)
	if !exists {
		return nil, false
	}
	r, ok := val.(*ResolvedIdentity)
	return r, ok && r != nil
}
