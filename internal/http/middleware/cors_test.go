package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		origins []string
		origin  string
		allowed bool
	}{
		{nil, "http://localhost:5173", true},
		{nil, "http://127.0.0.1:19006", true},
		{[]string{"https://admin.example.com"}, "https://admin.example.com", true},
		{[]string{"https://admin.example.com"}, "http://localhost:5173", false},
	}
	for _, tc := range cases {
		r := gin.New()
		r.Use(CORS(tc.origins))
		r.OPTIONS("/api/jobs", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		req := httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
		req.Header.Set("Origin", tc.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin")
		if tc.allowed && got != tc.origin {
			t.Fatalf("%s: allow-origin want=%q got=%q", tc.origin, tc.origin, got)
		}
		if !tc.allowed && got != "" {
			t.Fatalf("%s: should be rejected, got allow-origin=%q", tc.origin, got)
		}
	}
}
