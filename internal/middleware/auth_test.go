package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_blueprint_backend/internal/config"
	"ai_blueprint_backend/internal/model"
	"ai_blueprint_backend/internal/util"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newRouter(roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.Use(ConfigMiddleware(func() *config.Config { return cfg }))
	handlers := []gin.HandlerFunc{AuthMiddleware()}
	if len(roles) > 0 {
		handlers = append(handlers, RoleMiddleware(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user": user.UserID})
	})
	r.GET("/p", handlers...)
	return r
}

func token(t *testing.T, role model.UserRole, institutionID uint) string {
	t.Helper()
	tok, err := util.GenerateJWT(5, institutionID, role, "a@school.edu", testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func get(r http.Handler, header, query string) int {
	req := httptest.NewRequest(http.MethodGet, "/p"+query, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, get(r, "", ""))
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer not-a-jwt", ""))
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+token(t, model.Member, 1), ""))
	assert.Equal(t, http.StatusOK, get(r, "", "?token="+token(t, model.Member, 1)))
}

func TestAuthMiddleware_RequiresInstitution(t *testing.T) {
	r := newRouter()
	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+token(t, model.Member, 0), ""))
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(model.Reviewer)

	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+token(t, model.Member, 1), ""))
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+token(t, model.Reviewer, 1), ""))
	assert.Equal(t, http.StatusOK, get(r, "Bearer "+token(t, model.Admin, 1), ""), "admins pass every role check")
}
