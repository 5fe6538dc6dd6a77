package probe

import (
	"context"
	"errors"
	"net"

	"github.com/woozymasta/a2s/pkg/a2s"
	"github.com/woozymasta/bluescore/internal/models"
)

// A2SChecker queries a game server via UDP using A2S_INFO.
type A2SChecker struct {
	BufferSize uint16
}

// Check implements Checker. The query runs with whatever time is left on ctx.
func (c *A2SChecker) Check(ctx context.Context, target models.Target) error {
	timeout := remaining(ctx, DefaultTimeout)
	if timeout == 0 {
		return context.DeadlineExceeded
	}

	host, err := resolveIPv4(ctx, target.Address)
	if err != nil {
		return err
	}

	client, err := a2s.New(host, target.Port)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if c.BufferSize > 0 {
		client.BufferSize = c.BufferSize
	}
	client.Timeout = timeout

	done := make(chan error, 1)
	go func() {
		_, err := client.GetInfo()
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func resolveIPv4(ctx context.Context, address string) (string, error) {
	if ip := net.ParseIP(address); ip != nil {
		if ip.To4() == nil {
			return "", errors.New("a2s query requires an IPv4 address")
		}
		return ip.String(), nil
	}

	addrs, err := net.DefaultResolver.LookupIP(ctx, "ip4", address)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", errors.New("no IPv4 address for " + address)
	}

	return addrs[0].String(), nil
}
