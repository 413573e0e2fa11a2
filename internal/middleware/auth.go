package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"letshare-server/internal/authn"
	"letshare-server/internal/model"
)

const userContextKey = "authUser"

// RequireUser verifies the end-user token (bearer header or access_token
// cookie) the way C1 resolves handshake tokens, and rejects with 401 on
// failure without echoing the submitted value (spec §7).
func RequireUser(verifier *authn.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := verifier.ResolveToken(authn.HandshakeSource{
			BearerHeader: c.GetHeader("Authorization"),
			CookieHeader: c.GetHeader("Cookie"),
		})
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func UserFromContext(c *gin.Context) (model.AuthUser, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return model.AuthUser{}, false
	}
	u, ok := v.(model.AuthUser)
	return u, ok
}
