package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c), "role": c.GetString(ContextRole)})
	})
	r.GET("/admin", AuthMiddleware(), RequireRole("admin", "manager"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/open", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	utils.InitJWT("middleware-secret", time.Minute, time.Hour)
	r := authRouter()

	valid, err := utils.GenerateAccessToken(9, "staff")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"empty token", "Bearer   ", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"id":9,"role":"staff"}`, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	utils.InitJWT("middleware-secret", time.Minute, time.Hour)
	r := authRouter()

	for role, want := range map[string]int{
		"admin":   http.StatusNoContent,
		"manager": http.StatusNoContent,
		"staff":   http.StatusForbidden,
	} {
		tok, err := utils.GenerateAccessToken(1, role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "no authenticated role")
}
