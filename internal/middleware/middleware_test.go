package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", seen)
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	}), RequestID, AccessLog(zap.New(core)))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/contact", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/contact", fields["path"])
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
	assert.Equal(t, int64(5), fields["bytes"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func mustProxies(t *testing.T, list ...string) Proxies {
	t.Helper()
	p, err := ParseProxies(list)
	require.NoError(t, err)
	return p
}

func TestIPLimiter(t *testing.T) {
	l := NewIPLimiter(2, mustProxies(t, "10.0.0.0/8"))
	h := l.Limit(func(w http.ResponseWriter, r *http.Request) {})

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/upload-pitch-deck", nil)
		req.RemoteAddr = "10.0.0.2:443"
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("1.1.1.1"))
	assert.Equal(t, http.StatusOK, do("1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("1.1.1.1"))
	assert.Equal(t, http.StatusOK, do("2.2.2.2"), "limits are per address")

	unlimited := NewIPLimiter(0, nil).Limit(func(w http.ResponseWriter, r *http.Request) {})
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		unlimited(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestIPLimiter_SpoofedForwardedFor(t *testing.T) {
	h := NewIPLimiter(2, nil).Limit(func(w http.ResponseWriter, r *http.Request) {})

	codes := make([]int, 0, 3)
	for i := range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/upload-pitch-deck", nil)
		req.RemoteAddr = "198.51.100.4:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rec := httptest.NewRecorder()
		h(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes,
		"a direct client cannot rotate its address through the header")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "192.0.2.7", ClientIP(req), "untrusted peers cannot forward")
}

func TestProxies_ClientIP(t *testing.T) {
	proxies := mustProxies(t, "10.0.0.0/8", "192.0.2.1", "2001:db8::/32")

	for name, tc := range map[string]struct {
		remote string
		xff    []string
		want   string
	}{
		"no header":             {"10.0.0.5:80", nil, "10.0.0.5"},
		"single hop":            {"10.0.0.5:80", []string{"203.0.113.9"}, "203.0.113.9"},
		"spoofed left-most hop": {"10.0.0.5:80", []string{"1.2.3.4, 203.0.113.9"}, "203.0.113.9"},
		"trusted chain":         {"192.0.2.1:80", []string{"198.51.100.3, 10.1.1.1"}, "198.51.100.3"},
		"repeated headers":      {"10.0.0.5:80", []string{"1.2.3.4", "203.0.113.9, 10.2.2.2"}, "203.0.113.9"},
		"all hops trusted":      {"10.0.0.5:80", []string{"10.9.9.9, 10.8.8.8"}, "10.9.9.9"},
		"garbled hop":           {"10.0.0.5:80", []string{"1.2.3.4, nonsense"}, "10.0.0.5"},
		"untrusted peer":        {"198.51.100.8:80", []string{"203.0.113.9"}, "198.51.100.8"},
		"ipv6 proxy":            {"[2001:db8::1]:443", []string{"203.0.113.9"}, "203.0.113.9"},
		"mapped ipv4 proxy":     {"[::ffff:10.0.0.5]:80", []string{"203.0.113.9"}, "203.0.113.9"},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for _, v := range tc.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tc.want, proxies.ClientIP(req))
		})
	}
}

func TestParseProxies(t *testing.T) {
	p, err := ParseProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", "", "not-an-ip", "300.0.0.0/8"})
	assert.Error(t, err)
	assert.ErrorContains(t, err, "not-an-ip")
	assert.ErrorContains(t, err, "300.0.0.0/8")
	assert.Len(t, p, 2)
}
