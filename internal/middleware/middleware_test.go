package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestCORS_Preflight(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/infer", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORS_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/infer", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminOnly(t *testing.T) {
	t.Run("open without password", func(t *testing.T) {
		rec := httptest.NewRecorder()
		AdminOnly("", okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs/clear", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("rejects missing cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		AdminOnly("secret", okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs/clear", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("redirects browsers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		AdminOnly("secret", okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("accepts valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/logs/info", nil)
		req.AddCookie(&http.Cookie{Name: AdminCookie, Value: AdminToken("secret")})
		rec := httptest.NewRecorder()
		AdminOnly("secret", okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("rejects token for other password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/logs/info", nil)
		req.Header.Set("Accept", "application/json")
		req.AddCookie(&http.Cookie{Name: AdminCookie, Value: AdminToken("other")})
		rec := httptest.NewRecorder()
		AdminOnly("secret", okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
