package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/woozymasta/bluescore/internal/models"
)

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("probes are counted by protocol and status", func() {
			before := testutil.ToFloat64(global.probesTotal.WithLabelValues("tcp", "down"))
			RecordProbe("tcp", models.StatusDown, 20*time.Millisecond)
			So(testutil.ToFloat64(global.probesTotal.WithLabelValues("tcp", "down")), ShouldEqual, before+1)
		})

		Convey("standings replace previous gauges", func() {
			SetStandings([]models.TeamScore{{Name: "Alpha", Total: 300, Rank: 1}})
			SetStandings([]models.TeamScore{{Name: "Bravo", Total: 150, Rank: 1}})
			So(testutil.CollectAndCount(global.teamScore), ShouldEqual, 1)
			So(testutil.ToFloat64(global.teamScore.WithLabelValues("Bravo")), ShouldEqual, 150)
		})

		Convey("the handler exposes the namespace", func() {
			RecordOverride("add")
			rec := httptest.NewRecorder()
			Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			So(rec.Code, ShouldEqual, 200)
			So(strings.Contains(rec.Body.String(), "bluescore_overrides_total"), ShouldBeTrue)
		})
	})
}

func TestNewManager(t *testing.T) {
	Convey("A manager on a private registry does not clash with the global one", t, func() {
		So(func() { NewManager(prometheus.NewRegistry()) }, ShouldNotPanic)
	})
}

func TestStatusText(t *testing.T) {
	Convey("Status codes collapse into classes", t, func() {
		So(statusText(200), ShouldEqual, "2xx")
		So(statusText(304), ShouldEqual, "3xx")
		So(statusText(429), ShouldEqual, "4xx")
		So(statusText(503), ShouldEqual, "5xx")
	})
}
