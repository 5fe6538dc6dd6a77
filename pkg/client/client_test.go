package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClient(t *testing.T) {
	Convey("Given a fake bluescore server", t, func() {
		var (
			gotAuth string
			gotBody map[string]any
			gotPath string
		)

		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/scores", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"teams":[{"id":"t1","name":"Red","totalScore":300,"rank":1}],"round":4}`))
		})
		mux.HandleFunc("GET /api/version", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"Bluescore","version":"v1.2.0","commit":"da15c17"}`))
		})
		mux.HandleFunc("POST /api/checks/run", func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":9,"checksCompleted":10,"perStatusCounts":{"up":7,"down":3}}`))
		})
		mux.HandleFunc("POST /api/teams/{id}/points/{op}", func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "application/json")
			if r.PathValue("id") == "ghost" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"override: team not found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"teamId":"t1","operation":"add","amount":50,"before":100,"after":150,"rank":1}`))
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c, err := NewClient(srv.URL, "s3cret")
		So(err, ShouldBeNil)

		Convey("scores are decoded", func() {
			data, err := c.Scores()
			So(err, ShouldBeNil)
			So(data.Round, ShouldEqual, 4)
			So(data.Teams[0].TotalScore, ShouldEqual, 300)
		})

		Convey("server version is decoded", func() {
			build, err := c.Version()
			So(err, ShouldBeNil)
			So(build.Version, ShouldEqual, "v1.2.0")
		})

		Convey("the trigger sends the bearer token", func() {
			summary, err := c.RunChecks()
			So(err, ShouldBeNil)
			So(gotAuth, ShouldEqual, "Bearer s3cret")
			So(summary.ChecksCompleted, ShouldEqual, 10)
			So(summary.PerStatusCounts["down"], ShouldEqual, 3)
		})

		Convey("overrides carry amount and expectation", func() {
			expected := 100
			res, err := c.AddPoints("t1", "50", &expected)
			So(err, ShouldBeNil)
			So(res.After, ShouldEqual, 150)
			So(gotPath, ShouldEqual, "/api/teams/t1/points/add")
			So(gotBody["amount"], ShouldEqual, "50")
			So(gotBody["expected"], ShouldEqual, float64(100))
		})

		Convey("API errors keep status and message", func() {
			_, err := c.SubtractPoints("ghost", "10", nil)
			var apiErr *APIError
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.StatusCode, ShouldEqual, http.StatusNotFound)
			So(apiErr.Message, ShouldContainSubstring, "team not found")
		})
	})

	Convey("An empty endpoint is rejected", t, func() {
		_, err := NewClient("", "")
		So(err, ShouldNotBeNil)
	})
}
