package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/nbaparkdev/assettrack-ti/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	})
	r.GET("/users/:id", RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRBACAllowsListedRole(t *testing.T) {
	r := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleManager}, "ADMIN", "MANAGER")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/u2", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRBACSelfMatchesPathParam(t *testing.T) {
	r := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleUser}, "ADMIN", "SELF")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/u1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/u2", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	r := rbacRouter(nil, "ADMIN")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/u1", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireStaffBlocksPlainUsers(t *testing.T) {
	r := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleUser})
	r.GET("/staff", RequireStaff(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/staff", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}
