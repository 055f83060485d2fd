package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

type abortFunc func(c *gin.Context, status int, code, msg string)

// Authenticator resolves the caller from a bearer token.
type Authenticator struct {
	JWT JWT
	// Insecure trusts X-User-Id / X-User-Role headers instead of a token.
	// Local development only.
	Insecure bool
	Abort    abortFunc
}

func (a *Authenticator) abort(c *gin.Context, status int, code, msg string) {
	if a.Abort != nil {
		a.Abort(c, status, code, msg)
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": msg})
}

func (a *Authenticator) resolve(c *gin.Context) (Claims, bool) {
	if a.Insecure {
		id := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if id == "" {
			return Claims{}, false
		}
		role := strings.TrimSpace(c.GetHeader("X-User-Role"))
		if role == "" {
			role = RoleUser
		}
		cl := Claims{Role: role}
		cl.Subject = id
		return cl, true
	}
	tok := bearerToken(c.GetHeader("Authorization"))
	if tok == "" {
		// Browsers cannot set headers on a websocket handshake.
		tok = strings.TrimSpace(c.Query("access_token"))
	}
	if tok == "" {
		return Claims{}, false
	}
	cl, err := a.JWT.Verify(tok)
	if err != nil {
		return Claims{}, false
	}
	return cl, true
}

// Required rejects requests without valid credentials.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := a.resolve(c)
		if !ok {
			a.abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid bearer token")
			return
		}
		c.Set(claimsKey, cl)
		c.Next()
	}
}

// Optional attaches claims when present and never rejects.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if cl, ok := a.resolve(c); ok {
			c.Set(claimsKey, cl)
		}
		c.Next()
	}
}

// RequireRole must run after Required.
func (a *Authenticator) RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		cl, ok := ClaimsFrom(c)
		if !ok {
			a.abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		if _, ok := allowed[cl.Role]; !ok {
			a.abort(c, http.StatusForbidden, "FORBIDDEN", "insufficient role")
			return
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	cl, ok := v.(Claims)
	return cl, ok
}

func UserID(c *gin.Context) string {
	cl, ok := ClaimsFrom(c)
	if !ok {
		return ""
	}
	return cl.UserID()
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
