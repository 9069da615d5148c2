package rest

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TanmoySin/sessionguard/internal/ctxkey"
	"github.com/TanmoySin/sessionguard/internal/domain/session"
	"github.com/TanmoySin/sessionguard/internal/port/outbound"
	"github.com/TanmoySin/sessionguard/internal/telemetry"
)

// Headers of the client/server session side-channel.
const (
	// HeaderRequestID correlates a request across client and server logs.
	HeaderRequestID = "X-Request-ID"
	// HeaderSessionWarn is the advisory "expiring soon" flag the server may
	// attach to any authenticated response.
	HeaderSessionWarn = "X-Session-Warn"
	// HeaderSessionExpiresIn is the advisory remaining time in milliseconds.
	HeaderSessionExpiresIn = "X-Session-Expires-In"
)

// UnauthorizedFunc is invoked synchronously when any response comes back 401,
// before that response propagates to its caller. Stale pages must not keep
// rendering as if authenticated.
type UnauthorizedFunc func(ctx context.Context)

// HintFunc receives the advisory expiry hints attached to a response.
type HintFunc func(hint outbound.SessionHint)

// ActivityTransport wraps every outbound request: it attaches the current
// credential, stamps a correlation id, and records user activity on the
// session store. Recording activity never extends the idle expiry; only a
// server reconciliation does that.
type ActivityTransport struct {
	base    http.RoundTripper
	store   *session.Store
	metrics *telemetry.Metrics

	mu             sync.RWMutex
	onUnauthorized UnauthorizedFunc
	onHint         HintFunc
}

// TransportOption is a functional option for configuring an ActivityTransport.
type TransportOption func(*ActivityTransport)

// WithTransportMetrics records request counts on the given metrics.
func WithTransportMetrics(m *telemetry.Metrics) TransportOption {
	return func(t *ActivityTransport) {
		t.metrics = m
	}
}

// NewActivityTransport wraps base with session tagging. A nil base uses
// http.DefaultTransport.
func NewActivityTransport(base http.RoundTripper, store *session.Store, opts ...TransportOption) *ActivityTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &ActivityTransport{base: base, store: store}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnUnauthorized installs the handler fired on a 401 response. Wire this to
// the logout coordinator before issuing requests.
func (t *ActivityTransport) OnUnauthorized(fn UnauthorizedFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUnauthorized = fn
}

// OnHint installs the observer for advisory expiry hints.
func (t *ActivityTransport) OnHint(fn HintFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onHint = fn
}

// RoundTrip implements http.RoundTripper.
func (t *ActivityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	snap := t.store.Snapshot()

	// Per RoundTripper contract the request must not be mutated in place.
	out := req.Clone(req.Context())
	if snap.Credential != "" && out.Header.Get("Authorization") == "" {
		out.Header.Set("Authorization", "Bearer "+snap.Credential)
	}
	requestID := out.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
		out.Header.Set(HeaderRequestID, requestID)
	}

	t.store.RecordActivity(time.Now())
	if t.metrics != nil {
		t.metrics.RequestsTotal.WithLabelValues(out.Method).Inc()
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if fn := t.unauthorizedFunc(); fn != nil {
			// The request id travels with the teardown so its log lines can
			// be correlated with the request that triggered it.
			fn(context.WithValue(req.Context(), ctxkey.RequestIDKey{}, requestID))
		}
		return resp, nil
	}

	if hint, ok := parseHint(resp.Header); ok {
		if t.metrics != nil {
			t.metrics.HintsTotal.Inc()
		}
		if fn := t.hintFunc(); fn != nil {
			fn(hint)
		}
	}
	return resp, nil
}

func (t *ActivityTransport) unauthorizedFunc() UnauthorizedFunc {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onUnauthorized
}

func (t *ActivityTransport) hintFunc() HintFunc {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onHint
}

// parseHint extracts the advisory session headers. Absent or malformed values
// are treated as "no hint": the strict schema decodes what it recognizes and
// defaults the rest.
func parseHint(h http.Header) (outbound.SessionHint, bool) {
	var hint outbound.SessionHint
	present := false

	if v := h.Get(HeaderSessionWarn); v != "" {
		if warn, err := strconv.ParseBool(v); err == nil {
			hint.Warn = warn
			present = true
		}
	}
	if v := h.Get(HeaderSessionExpiresIn); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms >= 0 {
			hint.ExpiresIn = time.Duration(ms) * time.Millisecond
			present = true
		}
	}
	return hint, present
}
