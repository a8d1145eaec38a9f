package echoapi

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	headerCSRFToken  = "X-CSRF-Token"
	headerHXRequest  = "HX-Request"
	headerHXRedirect = "HX-Redirect"
	headerHXTrigger  = "HX-Trigger"
	csrfContextKey   = "csrf"
	csrfCookieName   = "_csrf"
)

// ipRateLimiter holds one token bucket per client IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    time.Duration
	burst    int
}

func newIPRateLimiter(every time.Duration, burst int) *ipRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		every:    every,
		burst:    burst,
	}
}

// getLimiter returns the limiter of ip, creating it on first use.
func (l *ipRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.every), l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

func (l *ipRateLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !l.getLimiter(ctx.RealIP()).Allow() {
				return errTooManyAttempts
			}
			return next(ctx)
		}
	}
}

func newRequestID() string {
	return uuid.New().String()
}

func isHTMX(ctx echo.Context) bool {
	return ctx.Request().Header.Get(headerHXRequest) == "true"
}

func wantsJSON(ctx echo.Context) bool {
	req := ctx.Request()
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

// redirect redirects the browser, through HX-Redirect for htmx requests.
func redirect(ctx echo.Context, url string) error {
	if isHTMX(ctx) {
		ctx.Response().Header().Set(headerHXRedirect, url)
		return ctx.NoContent(http.StatusOK)
	}
	return ctx.Redirect(http.StatusSeeOther, url)
}

func csrfToken(ctx echo.Context) string {
	token, _ := ctx.Get(csrfContextKey).(string)
	return token
}
