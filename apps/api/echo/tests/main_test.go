package tests

import (
	"net/http"
	"testing"
)

func TestServer_health(t *testing.T) {
	srv, _ := setup(t)

	tests := []httpTest{
		{name: "home", method: http.MethodGet, path: "/", wantCode: http.StatusOK, wantData: marchallObj(t, map[string]string{"message": conf.AppName + " API is running", "version": conf.Build})},
		{name: "health", method: http.MethodGet, path: "/health", wantCode: http.StatusOK, wantData: []byte(`{"status":"healthy"}`)},
		{name: "trailing slash", method: http.MethodGet, path: "/health/", wantCode: http.StatusOK, wantData: []byte(`{"status":"healthy"}`)},
		{name: "unknown route", method: http.MethodGet, path: "/lol", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Kind: "not_found", Error: "Not Found"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
