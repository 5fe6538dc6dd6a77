package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/woozymasta/bluescore/internal/models"
)

func targetOf(t *testing.T, rawAddr, protocol string) models.Target {
	t.Helper()

	host, portStr, err := net.SplitHostPort(rawAddr)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}

	return models.Target{Address: host, Port: port, Protocol: protocol}
}

func closedPort(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	return addr
}

type blockingChecker struct{}

func (blockingChecker) Check(ctx context.Context, _ models.Target) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestHTTPProbe(t *testing.T) {
	Convey("Given an engine with a short timeout", t, func() {
		engine := New(Options{Timeout: 300 * time.Millisecond})
		ctx := context.Background()

		Convey("a 2xx response is up and carries the user agent", func() {
			ua := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ua <- r.UserAgent()
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			out := engine.Probe(ctx, targetOf(t, srv.Listener.Addr().String(), models.ProtocolHTTP))
			So(out.Status, ShouldEqual, models.StatusUp)
			So(<-ua, ShouldEqual, DefaultUserAgent)
			So(out.CheckedAt.IsZero(), ShouldBeFalse)
		})

		Convey("a 5xx response is down", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			out := engine.Probe(ctx, targetOf(t, srv.Listener.Addr().String(), models.ProtocolHTTP))
			So(out.Status, ShouldEqual, models.StatusDown)
			So(out.Reason, ShouldContainSubstring, "500")
		})

		Convey("https with a self-signed certificate is up", func() {
			srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			out := engine.Probe(ctx, targetOf(t, srv.Listener.Addr().String(), models.ProtocolHTTPS))
			So(out.Status, ShouldEqual, models.StatusUp)
		})

		Convey("https is down when verification is requested", func() {
			strict := New(Options{Timeout: 300 * time.Millisecond, VerifyTLS: true})
			srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			out := strict.Probe(ctx, targetOf(t, srv.Listener.Addr().String(), models.ProtocolHTTPS))
			So(out.Status, ShouldEqual, models.StatusDown)
		})

		Convey("a hanging server is down within the timeout", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			}))
			defer srv.Close()

			start := time.Now()
			out := engine.Probe(ctx, targetOf(t, srv.Listener.Addr().String(), models.ProtocolHTTP))
			So(out.Status, ShouldEqual, models.StatusDown)
			So(time.Since(start), ShouldBeLessThan, 2*time.Second)
			So(out.ResponseTime, ShouldBeGreaterThanOrEqualTo, 300*time.Millisecond)
		})
	})
}

func TestTCPProbe(t *testing.T) {
	Convey("Given an engine with a short timeout", t, func() {
		engine := New(Options{Timeout: 300 * time.Millisecond})
		ctx := context.Background()

		Convey("an accepting listener is up", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			So(err, ShouldBeNil)
			defer func() { _ = ln.Close() }()
			go func() {
				for {
					conn, err := ln.Accept()
					if err != nil {
						return
					}
					_ = conn.Close()
				}
			}()

			out := engine.Probe(ctx, targetOf(t, ln.Addr().String(), models.ProtocolTCP))
			So(out.Status, ShouldEqual, models.StatusUp)

			Convey("and unknown protocol tags are probed as tcp", func() {
				out := engine.Probe(ctx, targetOf(t, ln.Addr().String(), "ssh"))
				So(out.Status, ShouldEqual, models.StatusUp)
			})
		})

		Convey("a closed port is down", func() {
			out := engine.Probe(ctx, targetOf(t, closedPort(t), "ftp"))
			So(out.Status, ShouldEqual, models.StatusDown)
			So(out.Reason, ShouldNotBeEmpty)
		})
	})
}

func TestTimeoutIsTerminal(t *testing.T) {
	Convey("A checker that never answers resolves to down", t, func() {
		engine := New(Options{Timeout: 100 * time.Millisecond})
		engine.Register("blocking", blockingChecker{})

		out := engine.Probe(context.Background(), models.Target{Address: "192.0.2.1", Port: 1, Protocol: "blocking"})
		So(out.Status, ShouldEqual, models.StatusDown)
		So(out.Status, ShouldNotEqual, models.StatusUnknown)
		So(out.ResponseTime, ShouldBeGreaterThanOrEqualTo, 100*time.Millisecond)
	})

	Convey("A cancelled parent context resolves to down", t, func() {
		engine := New(Options{Timeout: time.Second})
		engine.Register("blocking", blockingChecker{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out := engine.Probe(ctx, models.Target{Address: "192.0.2.1", Port: 1, Protocol: "blocking"})
		So(out.Status, ShouldEqual, models.StatusDown)
	})
}

func TestA2SRequiresIPv4(t *testing.T) {
	Convey("An IPv6 literal cannot be queried over a2s", t, func() {
		_, err := resolveIPv4(context.Background(), "::1")
		So(err, ShouldNotBeNil)

		host, err := resolveIPv4(context.Background(), "127.0.0.1")
		So(err, ShouldBeNil)
		So(host, ShouldEqual, "127.0.0.1")
	})
}
