package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchWildcardRoute(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"/api/v1/runs/abc", "/api/v1/runs/*", true},
		{"/api/v1/runs/abc/attempts", "/api/v1/runs/*/attempts", true},
		// A trailing wildcard is greedy and covers nested paths too.
		{"/api/v1/runs/abc/attempts", "/api/v1/runs/*", true},
		{"/api/v1/runs/abc/logs", "/api/v1/runs/*/attempts", false},
		{"/api/v1/download/run-1/cmo.html", "/api/v1/download/*", true},
		{"/api/v1/decisions/d1/resolve", "/api/v1/runs/*", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchWildcardRoute(tt.path, tt.pattern), "%s vs %s", tt.path, tt.pattern)
	}
}

func TestRouterPrefersMostSpecificRoute(t *testing.T) {
	r := New(nil)

	var hit string
	r.GET("/api/v1/runs/*", func(w http.ResponseWriter, req *http.Request) { hit = "generic" })
	r.GET("/api/v1/runs/*/attempts", func(w http.ResponseWriter, req *http.Request) { hit = "attempts" })

	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1/attempts", nil))
	assert.Equal(t, "attempts", hit)

	r.mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1", nil))
	assert.Equal(t, "generic", hit)
}

func TestRouterDispatch(t *testing.T) {
	r := New(nil)

	var gotPath string
	r.GET("/api/v1/runs/*/attempts", func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1/attempts", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v1/runs/run-1/attempts", gotPath)
}

func TestRouterMethodNotAllowed(t *testing.T) {
	r := New(nil)
	r.GET("/api/v1/runs", func(w http.ResponseWriter, req *http.Request) {})

	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/runs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterNotFound(t *testing.T) {
	r := New(nil)

	rec := httptest.NewRecorder()
	r.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
