// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/bluescore/internal/logger"
	"github.com/woozymasta/bluescore/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Server    Server        `group:"Server Options" env-namespace:"BLUESCORE"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"BLUESCORE_DB"`
	Probe     Probe         `group:"Probe Options" namespace:"probe" env-namespace:"BLUESCORE_PROBE"`
	Cycle     Cycle         `group:"Cycle Options" namespace:"cycle" env-namespace:"BLUESCORE_CYCLE"`
	Scores    Scores        `group:"Scoreboard Options" namespace:"scores" env-namespace:"BLUESCORE_SCORES"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"BLUESCORE_RATE_LIMIT"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"BLUESCORE_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Address     string `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken   string `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token"`
	MaxBodySize int64  `long:"max-body-size" env:"MAX_BODY_SIZE" description:"Max body size for incoming requests" default:"1024"`
	TrustProxy  bool   `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Storage holds database configuration and one-shot maintenance tasks.
type Storage struct {
	// betteralign:ignore

	Path              string `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"bluescore.db"`
	Import            string `long:"import" description:"Import teams, services and competition settings from a YAML file and exit"`
	CheckOnce         bool   `long:"check-once" description:"Run a single check cycle, print its summary and exit"`
	ResetAdjustments  bool   `long:"reset-adjustments" description:"Drop all manual score adjustments, recompute and exit"`
	GenerateCount     int    `long:"gen-fake-data" hidden:"true"`
	GenerateUptime    int    `long:"gen-fake-uptime" hidden:"true" default:"80"`
}

// Probe holds health check configuration.
type Probe struct {
	// betteralign:ignore

	Timeout       time.Duration `long:"timeout" env:"TIMEOUT" description:"Per probe timeout" default:"5s"`
	UserAgent     string        `long:"user-agent" env:"USER_AGENT" description:"User-Agent sent by HTTP probes" default:"CyberDefense-Monitor/1.0"`
	VerifyTLS     bool          `long:"verify-tls" env:"VERIFY_TLS" description:"Verify TLS certificates of HTTPS services"`
	A2SBufferSize uint16        `long:"a2s-buffer-size" env:"A2S_BUFFER_SIZE" description:"A2S response buffer size" default:"1400"`
}

// Cycle holds dispatcher configuration.
type Cycle struct {
	// betteralign:ignore

	Interval     time.Duration `long:"interval" env:"INTERVAL" description:"Time between scheduled check cycles" default:"30s"`
	Deadline     time.Duration `long:"deadline" env:"DEADLINE" description:"Overall deadline of one check cycle" default:"25s"`
	Workers      int           `long:"workers" env:"WORKERS" description:"Concurrent probes per cycle" default:"20"`
	UptimeWindow int           `long:"uptime-window" env:"UPTIME_WINDOW" description:"Trailing cycles used for uptime percentage (1-62)" default:"60"`
	Retries      uint64        `long:"record-retries" env:"RECORD_RETRIES" description:"Retries for a failed check record write" default:"2"`
	Manual       bool          `long:"manual" env:"MANUAL" description:"Disable the scheduler; cycles run only when triggered"`
}

// Scores holds scoreboard read configuration.
type Scores struct {
	// betteralign:ignore

	Source   string        `long:"source" env:"SOURCE" description:"Scoreboard data source" choice:"live" choice:"fixture" default:"live"`
	Fixture  string        `long:"fixture" env:"FIXTURE" description:"Path to a ScoreData JSON file for the fixture source"`
	CacheTTL time.Duration `long:"cache-ttl" env:"CACHE_TTL" description:"Scoreboard document cache lifetime, 0 disables" default:"5s"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	HardLimitCount int           `long:"hard-count" env:"HARD_COUNT" description:"Hard IP limit: requests count" default:"120"`
	HardLimitWin   time.Duration `long:"hard-window" env:"HARD_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := parse(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	return cfg
}

func parse(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.Version {
		return &cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that flag tags cannot express.
func (c *Config) Validate() error {
	if c.Server.AuthToken == "" && !c.maintenance() {
		return errors.New("required flag `-t, --auth-token' or environment variable `BLUESCORE_AUTH_TOKEN` was not specified")
	}
	if c.Probe.Timeout <= 0 {
		return errors.New("--probe-timeout must be positive")
	}
	if c.Cycle.Workers < 1 {
		return errors.New("--cycle-workers must be at least 1")
	}
	if c.Cycle.Interval <= 0 || c.Cycle.Deadline <= 0 {
		return errors.New("--cycle-interval and --cycle-deadline must be positive")
	}
	if c.Cycle.Deadline < c.Probe.Timeout {
		return fmt.Errorf("--cycle-deadline (%s) must not be shorter than --probe-timeout (%s)", c.Cycle.Deadline, c.Probe.Timeout)
	}
	if c.Cycle.UptimeWindow < 1 || c.Cycle.UptimeWindow > 62 {
		return errors.New("--cycle-uptime-window must be between 1 and 62")
	}
	if c.Scores.Source == "fixture" && c.Scores.Fixture == "" {
		return errors.New("--scores-fixture is required with --scores-source=fixture")
	}

	return nil
}

// maintenance reports whether a one-shot task was requested, which needs no admin token.
func (c *Config) maintenance() bool {
	return c.Storage.Import != "" || c.Storage.CheckOnce || c.Storage.ResetAdjustments || c.Storage.GenerateCount > 0
}
