package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
	"github.com/bedrock-gateway/bedrock-assumerole/controller"
	relaycontroller "github.com/bedrock-gateway/bedrock-assumerole/relay/controller"
)

func newServer(t *testing.T, token, subnets string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prevToken, prevSubnets, prevProfiles := config.APIToken, config.APIAllowedSubnets, config.InferenceProfilesJSON
	t.Cleanup(func() {
		config.APIToken, config.APIAllowedSubnets, config.InferenceProfilesJSON = prevToken, prevSubnets, prevProfiles
	})
	config.APIToken = token
	config.APIAllowedSubnets = subnets
	config.InferenceProfilesJSON = ""

	server := gin.New()
	server.Use(func(c *gin.Context) {
		gmw.SetLogger(c, logger.Logger)
		c.Next()
	})
	require.NoError(t, SetRouter(server, controller.NewBedrock(relaycontroller.NewService(nil), nil)))
	return server
}

func get(server *gin.Engine, path string, header map[string]string, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if remote != "" {
		req.RemoteAddr = remote
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestStatusIsPublic(t *testing.T) {
	server := newServer(t, "secret", "")
	rec := get(server, "/api/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBedrockRoutesRequireToken(t *testing.T) {
	server := newServer(t, "secret", "")

	rec := get(server, "/api/bedrock/models", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(server, "/api/bedrock/models", map[string]string{"Authorization": "Bearer secret"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBedrockRoutesSubnetAllowlist(t *testing.T) {
	server := newServer(t, "", "10.0.0.0/8")

	rec := get(server, "/api/bedrock/models", nil, "192.168.0.10:4000")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = get(server, "/api/bedrock/models", nil, "10.20.30.40:4000")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSetRouterRejectsInvalidSubnets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	prev := config.APIAllowedSubnets
	t.Cleanup(func() { config.APIAllowedSubnets = prev })
	config.APIAllowedSubnets = "10.0.0.0/99"

	err := SetRouter(gin.New(), controller.NewBedrock(nil, nil))
	require.Error(t, err)
}

func TestCorsConfig(t *testing.T) {
	cfg := corsConfig("")
	require.True(t, cfg.AllowAllOrigins)
	require.Contains(t, cfg.AllowHeaders, "Authorization")

	cfg = corsConfig(" https://a.example , ,https://b.example")
	require.False(t, cfg.AllowAllOrigins)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
}

func TestCorsPreflight(t *testing.T) {
	server := newServer(t, "", "")
	req := httptest.NewRequest(http.MethodOptions, "/api/bedrock/invoke", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
