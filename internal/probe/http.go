package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/woozymasta/bluescore/internal/models"
)

// maxDrain is how much of a response body is read before closing it.
const maxDrain = 64 << 10

// HTTPChecker issues a GET to the service root and expects a 2xx status.
type HTTPChecker struct {
	client    *http.Client
	userAgent string
}

func newHTTPChecker(userAgent string, verifyTLS bool) *HTTPChecker {
	transport := &http.Transport{
		DialContext:       (&net.Dialer{KeepAlive: -1}).DialContext,
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: !verifyTLS}, //nolint:gosec // team services use self-signed certs
		DisableKeepAlives: true,
	}

	return &HTTPChecker{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// Check implements Checker.
func (c *HTTPChecker) Check(ctx context.Context, target models.Target) error {
	scheme := models.ProtocolHTTP
	if target.Protocol == models.ProtocolHTTPS {
		scheme = models.ProtocolHTTPS
	}
	url := fmt.Sprintf("%s://%s/", scheme, net.JoinHostPort(target.Address, strconv.Itoa(target.Port)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

// TCPChecker opens a TCP connection and closes it immediately.
type TCPChecker struct {
	dialer net.Dialer
}

// Check implements Checker.
func (c *TCPChecker) Check(ctx context.Context, target models.Target) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", net.JoinHostPort(target.Address, strconv.Itoa(target.Port)))
	if err != nil {
		return err
	}

	return conn.Close()
}

// remaining returns the time left until the context deadline, or fallback without one.
func remaining(ctx context.Context, fallback time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			return d
		}
		return 0
	}

	return fallback
}
