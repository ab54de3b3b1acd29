package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/utils"
)

func identityRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity(secret, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, UserEmail(c))
	})
	return r
}

func whoami(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentityValidToken(t *testing.T) {
	token, err := utils.GenerateIdentityToken("secret", "resident@example.com", time.Hour)
	require.NoError(t, err)

	w := whoami(identityRouter("secret"), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "resident@example.com", w.Body.String())
}

func TestIdentityIsOptional(t *testing.T) {
	r := identityRouter("secret")

	for _, header := range []string{"", "Bearer garbage", "Basic dXNlcjpwYXNz", "Bearer"} {
		w := whoami(r, header)
		assert.Equal(t, http.StatusOK, w.Code, header)
		assert.Empty(t, w.Body.String(), header)
	}
}

func TestIdentityWithoutSecret(t *testing.T) {
	token, err := utils.GenerateIdentityToken("secret", "resident@example.com", time.Hour)
	require.NoError(t, err)

	w := whoami(identityRouter(""), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}
