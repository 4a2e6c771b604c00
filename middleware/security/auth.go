package security

import (
	"net/http"
	"strings"

	"BKConnect/tools/errs"
	sec "BKConnect/tools/security"

	"github.com/gin-gonic/gin"
)

// context key — downstream handlers read the resolved identity from here
const CtxUserIDKey = "user_id"

type Options struct {
	HeaderToken               string // default "authorization"
	EnableAuthorizationBearer bool   // default true

	JWT sec.Options
}

func DefaultOptions(secret []byte) *Options {
	return &Options{
		HeaderToken:               "authorization",
		EnableAuthorizationBearer: true,
		JWT:                       sec.DefaultOptions(secret),
	}
}

// Middleware verifies the request token and stores the user id in the gin
// context. Requests without a valid token never reach the handler.
func Middleware(opts *Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))

		// accept Authorization: Bearer xxx as well
		if token == "" && opts.EnableAuthorizationBearer {
			if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
				if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
					token = strings.TrimSpace(authz[len("bearer "):])
				}
			}
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}

		userID, err := sec.Verify(opts.JWT, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid.WithDetail(err.Error()))
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID reads the authenticated user id set by Middleware.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserIDKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
