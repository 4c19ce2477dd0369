package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/gchalakovmmi/PulpuWEB/auth"
	"github.com/gchalakovmmi/PulpuWEB/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/markbates/goth"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"Flywheel/internal/httpjson"
)

type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware listed runs first.
func Chain(h http.Handler, m ...Middleware) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	userKey      ctxKey = "user"
)

func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// RequestID reuses the caller's X-Request-ID or assigns a new one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += n
	return n, err
}

func (sw *statusWriter) Unwrap() http.ResponseWriter { return sw.ResponseWriter }

func AccessLog(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			if sw.status == 0 {
				sw.status = http.StatusOK
			}
			logger.Info("http",
				zap.String("request_id", RequestIDFrom(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Int("bytes", sw.bytes),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("Panic serving %s %s (request %s): %v", r.Method, r.URL.Path, RequestIDFrom(r.Context()), rec)
				httpjson.Error(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Proxies lists the peers whose X-Forwarded-For header is believed.
type Proxies []netip.Prefix

// ParseProxies accepts bare addresses and CIDR ranges. Entries that do not
// parse are skipped and reported together.
func ParseProxies(list []string) (Proxies, error) {
	var (
		out  Proxies
		errs []error
	)
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				errs = append(errs, fmt.Errorf("trusted proxy %q: %w", s, err))
				continue
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("trusted proxy %q: %w", s, err))
			continue
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, errors.Join(errs...)
}

func (p Proxies) trusts(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, pfx := range p {
		if pfx.Contains(a) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer address. X-Forwarded-For is only consulted when
// the peer is a trusted proxy; the hops are then walked from the right and
// the first one that is not itself trusted wins.
func (p Proxies) ClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !p.trusts(peer) {
		return peer
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if _, err := netip.ParseAddr(hop); err != nil {
			// A garbled hop means nothing to its left can be believed.
			return peer
		}
		if !p.trusts(hop) {
			return hop
		}
		peer = hop
	}
	return peer
}

// ClientIP is the peer address with no proxies trusted.
func ClientIP(r *http.Request) string {
	return Proxies(nil).ClientIP(r)
}

// IPLimiter rate-limits a route per client address.
type IPLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	b       int
	proxies Proxies
}

type client struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewIPLimiter allows perMinute requests a minute per address, in bursts of
// up to perMinute. A non-positive value disables the limit. Addresses are
// resolved through proxies.
func NewIPLimiter(perMinute int, proxies Proxies) *IPLimiter {
	if perMinute <= 0 {
		return &IPLimiter{r: rate.Inf, clients: make(map[string]*client), proxies: proxies}
	}
	return &IPLimiter{
		clients: make(map[string]*client),
		r:       rate.Limit(float64(perMinute) / 60),
		b:       perMinute,
		proxies: proxies,
	}
}

func (l *IPLimiter) allow(ip string) bool {
	if l.r == rate.Inf {
		return true
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.clients) > 4096 {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > 10*time.Minute {
				delete(l.clients, k)
			}
		}
	}
	c, ok := l.clients[ip]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.r, l.b)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.lim.Allow()
}

func (l *IPLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(l.proxies.ClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			httpjson.Error(w, http.StatusTooManyRequests, "Too many requests, please try again shortly")
			return
		}
		next(w, r)
	}
}

// WithDBAndAuth wraps a handler with both database and authentication middleware
func WithDBAndAuth(
	dbConnectionDetails db.ConnectionDetails,
	googleAuth *auth.GoogleAuth,
	handler func(http.ResponseWriter, *http.Request, *pgx.Conn),
) http.HandlerFunc {
	dbHandler := db.WithDB(dbConnectionDetails, handler)
	return googleAuth.WithGoogleAuth(func(w http.ResponseWriter, r *http.Request) {
		dbHandler(w, r)
	})
}

// WithUser puts the signed-in staff member, if any, into the request context.
func WithUser(googleAuth *auth.GoogleAuth, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := googleAuth.GetSession(r)
		if err == nil && session != nil {
			r = r.WithContext(context.WithValue(r.Context(), userKey, &session.User))
		}
		next(w, r)
	}
}

func UserFrom(ctx context.Context) *goth.User {
	u, _ := ctx.Value(userKey).(*goth.User)
	return u
}
