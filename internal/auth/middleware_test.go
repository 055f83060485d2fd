package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newRouter(a *Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", a.Required(), func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	r.GET("/admin", a.Required(), a.RequireRole(RoleAdmin, RoleSuperAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequired(t *testing.T) {
	j := JWT{Secret: []byte("s3cret"), Issuer: "quickbid"}
	r := newRouter(&Authenticator{JWT: j})

	if w := do(r, "/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token code=%d want=401", w.Code)
	}
	if w := do(r, "/me", "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token code=%d want=401", w.Code)
	}

	cl := Claims{Role: RoleUser}
	cl.Subject = "u-42"
	tok, err := j.Sign(cl)
	if err != nil {
		t.Fatalf("sign err=%v", err)
	}
	w := do(r, "/me", tok)
	if w.Code != http.StatusOK || w.Body.String() != "u-42" {
		t.Fatalf("code=%d body=%q", w.Code, w.Body.String())
	}

	other := JWT{Secret: []byte("s3cret"), Issuer: "someone-else"}
	foreign, _ := other.Sign(cl)
	if w := do(r, "/me", foreign); w.Code != http.StatusUnauthorized {
		t.Fatalf("foreign issuer code=%d want=401", w.Code)
	}

	expired := Claims{Role: RoleUser}
	expired.Subject = "u-42"
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	old, _ := j.Sign(expired)
	if w := do(r, "/me", old); w.Code != http.StatusUnauthorized {
		t.Fatalf("expired code=%d want=401", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	j := JWT{Secret: []byte("s3cret")}
	r := newRouter(&Authenticator{JWT: j})

	user := Claims{Role: RoleUser}
	user.Subject = "u1"
	ut, _ := j.Sign(user)
	if w := do(r, "/admin", ut); w.Code != http.StatusForbidden {
		t.Fatalf("user code=%d want=403", w.Code)
	}
	admin := Claims{Role: RoleSuperAdmin}
	admin.Subject = "root"
	at, _ := j.Sign(admin)
	if w := do(r, "/admin", at); w.Code != http.StatusNoContent {
		t.Fatalf("superadmin code=%d want=204", w.Code)
	}
}
