// Package probe performs a single reachability check against one network target.
// A probe always resolves to up or down; failures and timeouts are down outcomes, never errors.
package probe

import (
	"context"
	"strings"
	"time"

	"github.com/woozymasta/bluescore/internal/metrics"
	"github.com/woozymasta/bluescore/internal/models"
)

// DefaultTimeout bounds every probe unless configured otherwise.
const DefaultTimeout = 5 * time.Second

// DefaultUserAgent is sent with HTTP probes.
const DefaultUserAgent = "CyberDefense-Monitor/1.0"

// Checker performs one protocol-specific check. A nil error means the target is up.
type Checker interface {
	Check(ctx context.Context, target models.Target) error
}

// Options configures the probe engine.
type Options struct {
	UserAgent     string
	Timeout       time.Duration
	A2SBufferSize uint16
	VerifyTLS     bool
}

// Engine dispatches targets to the checker matching their protocol tag.
type Engine struct {
	checkers map[string]Checker
	fallback Checker
	now      func() time.Time
	timeout  time.Duration
}

// New creates a probe engine with http, https, a2s and tcp checkers.
func New(opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	web := newHTTPChecker(opts.UserAgent, opts.VerifyTLS)
	tcp := &TCPChecker{}

	return &Engine{
		checkers: map[string]Checker{
			models.ProtocolHTTP:  web,
			models.ProtocolHTTPS: web,
			models.ProtocolA2S:   &A2SChecker{BufferSize: opts.A2SBufferSize},
			models.ProtocolTCP:   tcp,
		},
		fallback: tcp,
		timeout:  opts.Timeout,
		now:      time.Now,
	}
}

// Register replaces or adds the checker for a protocol tag.
func (e *Engine) Register(protocol string, c Checker) {
	e.checkers[strings.ToLower(protocol)] = c
}

// Timeout returns the per-probe timeout.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Probe checks one target within the configured timeout.
func (e *Engine) Probe(ctx context.Context, target models.Target) models.Outcome {
	protocol := strings.ToLower(target.Protocol)
	checker, ok := e.checkers[protocol]
	if !ok {
		checker = e.fallback
		protocol = models.ProtocolTCP
	}

	probeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.now()
	err := checker.Check(probeCtx, target)
	elapsed := e.now().Sub(start)

	out := models.Outcome{
		Status:       models.StatusUp,
		ResponseTime: elapsed,
		CheckedAt:    start,
	}

	switch {
	case err != nil:
		out.Status = models.StatusDown
		out.Reason = err.Error()
	case elapsed >= e.timeout:
		out.Status = models.StatusDown
		out.Reason = context.DeadlineExceeded.Error()
	}

	metrics.RecordProbe(protocol, out.Status, elapsed)

	return out
}
