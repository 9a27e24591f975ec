package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/grampanchayat/villagestats_backend/config"
	"github.com/grampanchayat/villagestats_backend/docstore"
	"github.com/grampanchayat/villagestats_backend/middlewares"
	"github.com/grampanchayat/villagestats_backend/models"
	"github.com/grampanchayat/villagestats_backend/utils"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

// echoTenant answers with the tenant id the middleware chain resolved.
func echoTenant(c *gin.Context) {
	tenant, _ := utils.GetTenantIdFromContext(c.Request.Context())
	c.String(http.StatusOK, tenant)
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(middlewares.AuthMiddleware())
	r.GET("/open", echoTenant)
	r.GET("/api/x", middlewares.RequireAuth(), echoTenant)
	r.GET("/super", middlewares.RequireSuperAdmin(), echoTenant)
	return r
}

func do(t *testing.T, h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, email, tenant, role string) string {
	t.Helper()
	token, err := utils.JwtGenerate(email, tenant, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthMiddleware(t *testing.T) {
	r := authRouter()
	admin := bearer(t, "admin@gp1.in", "gp1", models.RoleAdmin)
	super := bearer(t, "root@example.in", "", models.RoleSuperAdmin)

	cases := []struct {
		name    string
		path    string
		headers map[string]string
		code    int
		body    string
	}{
		{"anonymous passes open route", "/open", nil, http.StatusOK, ""},
		{"anonymous rejected on api", "/api/x", nil, http.StatusUnauthorized, ""},
		{"garbage token", "/open", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, ""},
		{"missing scheme", "/open", map[string]string{"Authorization": "token"}, http.StatusUnauthorized, ""},
		{"admin tenant from claims", "/api/x", map[string]string{"Authorization": admin}, http.StatusOK, "gp1"},
		{"admin cannot switch tenant", "/api/x", map[string]string{"Authorization": admin, middlewares.TenantHeader: "gp2"}, http.StatusOK, "gp1"},
		{"super admin needs a tenant", "/api/x", map[string]string{"Authorization": super}, http.StatusForbidden, ""},
		{"super admin selects tenant", "/api/x", map[string]string{"Authorization": super, middlewares.TenantHeader: "gp2"}, http.StatusOK, "gp2"},
		{"admin is not super", "/super", map[string]string{"Authorization": admin}, http.StatusForbidden, ""},
		{"super route", "/super", map[string]string{"Authorization": super}, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, tc.path, tc.headers)
			require.Equal(t, tc.code, w.Code, w.Body.String())
			if tc.code == http.StatusOK {
				require.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestPublicTenant(t *testing.T) {
	s, err := docstore.OpenInMemory()
	require.NoError(t, err)
	config.SetDocStore(s)
	t.Cleanup(func() {
		config.SetDocStore(nil)
		_ = s.Close()
	})
	_, err = models.CreateGramPanchayat(context.Background(), &models.NewGramPanchayat{
		ID:            "wagholi",
		Name:          "Wagholi",
		Domain:        "wagholi.example.in",
		AdminEmail:    "admin@wagholi.example.in",
		AdminPassword: "s3cret-pass",
	})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/public/:tenant/ping", middlewares.PublicTenant(), echoTenant)

	w := do(t, r, "/public/Wagholi/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "wagholi", w.Body.String())

	for _, path := range []string{"/public/unknown/ping", "/public/x/ping", "/public/bad%2Fid/ping"} {
		w := do(t, r, path, nil)
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}
}
