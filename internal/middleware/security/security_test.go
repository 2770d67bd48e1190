package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "form-action 'self'")
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))
}

func TestNoStoreAndStatic(t *testing.T) {
	rr := httptest.NewRecorder()
	NoStore(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = httptest.NewRecorder()
	StaticAssetMiddleware(3600)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(nil)
	cases := []struct {
		name       string
		method     string
		target     string
		userAgent  string
		suspicious bool
	}{
		{"plain page", http.MethodGet, "/", "Mozilla/5.0", false},
		{"form post", http.MethodPost, "/expenses", "Mozilla/5.0", false},
		{"dotenv scan", http.MethodGet, "/.env", "", true},
		{"traversal in query", http.MethodGet, "/?page=../../etc/passwd", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
		{"long url", http.MethodGet, "/?q=" + strings.Repeat("a", 2100), "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			req.Header.Set("User-Agent", tc.userAgent)
			assert.Equal(t, tc.suspicious, d.DetectSuspiciousRequest(req))
		})
	}
	assert.Equal(t, int64(5), d.GetMetrics().SuspiciousRequests)
}

func TestDetectorMiddlewareBlocks(t *testing.T) {
	d := NewDetector(nil)
	h := d.Middleware(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("TRACE", "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "scans are logged, not blocked")

	assert.Equal(t, int64(1), d.GetMetrics().BlockedRequests)
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	assert.Equal(t, "203.0.113.9", d.ExtractClientIP(req), "untrusted peers cannot spoof")

	req.RemoteAddr = "10.0.0.2:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.2")
	assert.Equal(t, "198.51.100.1", d.ExtractClientIP(req))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", d.ExtractClientIP(req))

	req.Header.Set("X-Real-IP", "garbage")
	assert.Equal(t, "10.0.0.2", d.ExtractClientIP(req))

	req.RemoteAddr = "203.0.113.50:1"
	require.NoError(t, d.AddTrustedProxy("203.0.113.0/24"))
	req.Header.Set("X-Real-IP", "198.51.100.8")
	assert.Equal(t, "198.51.100.8", d.ExtractClientIP(req))
	assert.Error(t, d.AddTrustedProxy("not-a-cidr"))
}

func TestCrossSite(t *testing.T) {
	cases := []struct {
		name      string
		method    string
		origin    string
		fetchSite string
		want      bool
	}{
		{"same origin form", http.MethodPost, "http://example.com", "same-origin", false},
		{"typed into address bar", http.MethodPost, "", "none", false},
		{"other site by fetch metadata", http.MethodPost, "", "cross-site", true},
		{"sibling subdomain", http.MethodPost, "", "same-site", true},
		{"other site by origin", http.MethodPost, "https://evil.example", "", true},
		{"matching origin only", http.MethodPost, "http://example.com", "", false},
		{"opaque origin", http.MethodPost, "null", "", true},
		{"non-browser client", http.MethodPost, "", "", false},
		{"safe method", http.MethodGet, "https://evil.example", "cross-site", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "http://example.com/expenses", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.fetchSite != "" {
				req.Header.Set("Sec-Fetch-Site", tc.fetchSite)
			}
			assert.Equal(t, tc.want, CrossSite(req))
		})
	}
}

func TestSameOriginMiddleware(t *testing.T) {
	d := NewDetector(nil)
	called := false
	h := d.SameOriginMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodPost, "http://example.com/balance", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, called)
	assert.Equal(t, int64(1), d.GetMetrics().BlockedRequests)
}
