package config

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given only an auth token", t, func() {
		cfg, err := parse([]string{"--auth-token", "secret"})
		So(err, ShouldBeNil)

		Convey("defaults match the documented behaviour", func() {
			So(cfg.Server.Address, ShouldEqual, ":8080")
			So(cfg.Storage.Path, ShouldEqual, "bluescore.db")
			So(cfg.Probe.Timeout, ShouldEqual, 5*time.Second)
			So(cfg.Probe.UserAgent, ShouldEqual, "CyberDefense-Monitor/1.0")
			So(cfg.Probe.VerifyTLS, ShouldBeFalse)
			So(cfg.Cycle.Interval, ShouldEqual, 30*time.Second)
			So(cfg.Cycle.Deadline, ShouldEqual, 25*time.Second)
			So(cfg.Cycle.Workers, ShouldEqual, 20)
			So(cfg.Cycle.UptimeWindow, ShouldEqual, 60)
			So(cfg.Scores.Source, ShouldEqual, "live")
			So(cfg.Logger.Level, ShouldEqual, "info")
		})
	})

	Convey("Namespaced flags use the dash delimiter", t, func() {
		cfg, err := parse([]string{"-t", "x", "--cycle-workers", "4", "--probe-timeout", "2s", "--db-path", "/tmp/x.db"})
		So(err, ShouldBeNil)
		So(cfg.Cycle.Workers, ShouldEqual, 4)
		So(cfg.Probe.Timeout, ShouldEqual, 2*time.Second)
		So(cfg.Storage.Path, ShouldEqual, "/tmp/x.db")
	})

	Convey("Invalid combinations are rejected", t, func() {
		cases := [][]string{
			{},
			{"-t", "x", "--cycle-workers", "0"},
			{"-t", "x", "--cycle-uptime-window", "63"},
			{"-t", "x", "--cycle-deadline", "1s"},
			{"-t", "x", "--scores-source", "fixture"},
			{"-t", "x", "--scores-source", "cache"},
		}
		for _, args := range cases {
			_, err := parse(args)
			So(err, ShouldNotBeNil)
		}
	})

	Convey("Maintenance tasks do not need a token", t, func() {
		cfg, err := parse([]string{"--db-check-once"})
		So(err, ShouldBeNil)
		So(cfg.Storage.CheckOnce, ShouldBeTrue)
	})
}

func TestParseEnv(t *testing.T) {
	t.Setenv("BLUESCORE_AUTH_TOKEN", "from-env")
	t.Setenv("BLUESCORE_CYCLE_INTERVAL", "1m")

	Convey("Environment variables are read with the BLUESCORE prefix", t, func() {
		cfg, err := parse(nil)
		So(err, ShouldBeNil)
		So(cfg.Server.AuthToken, ShouldEqual, "from-env")
		So(cfg.Cycle.Interval, ShouldEqual, time.Minute)
	})
}
