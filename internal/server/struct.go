package server

import (
	"context"
	"time"

	"github.com/woozymasta/bluescore/internal/models"
	"github.com/woozymasta/bluescore/internal/override"
	"github.com/woozymasta/bluescore/internal/scoreboard"
)

// CycleRunner runs one check cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleSummary, error)
}

// CycleLog reads persisted cycle summaries and reports database health.
type CycleLog interface {
	LastCycle(ctx context.Context) (*models.CycleSummary, error)
	Ping(ctx context.Context) error
}

// Overrides applies manual score operations.
type Overrides interface {
	AddPoints(ctx context.Context, req override.Request) (*models.OverrideResult, error)
	SubtractPoints(ctx context.Context, req override.Request) (*models.OverrideResult, error)
	ResetScore(ctx context.Context, req override.Request) (*models.OverrideResult, error)
}

// Documents serves the encoded scoreboard.
type Documents interface {
	Document(ctx context.Context) (*scoreboard.Document, error)
}

// Deps bundles the components the HTTP layer talks to.
type Deps struct {
	Cycles     CycleRunner
	Store      CycleLog
	Overrides  Overrides
	Scoreboard Documents
}

// Server holds the dependencies, configuration, and runtime state required
// to handle HTTP requests.
type Server struct {
	deps Deps

	// done stops the rate limiter cleanup when the server is closed.
	done chan struct{}

	// authToken is the secret token required to access administrative API endpoints
	// (trigger and score overrides).
	authToken string

	// maxBody specifies the maximum allowed size (in bytes) for incoming HTTP request bodies.
	maxBody int64

	// hardLimitCount is the maximum number of requests allowed per IP address
	// within the hardLimitWin duration.
	hardLimitCount int

	// hardLimitWin is the time window duration for the hard rate limiter.
	hardLimitWin time.Duration

	// trustProxy indicates whether the server should trust headers like X-Forwarded-For
	// or CF-Connecting-IP when determining the client's real IP address.
	trustProxy bool
}

// amountRequest is the body of the add and subtract endpoints.
// Amount is kept raw so both "50" and 50 are accepted and validated by the override service.
type amountRequest struct {
	Expected *int   `json:"expected,omitempty"`
	Amount   rawAmt `json:"amount"`
}

// resetRequest is the optional body of the reset endpoint.
type resetRequest struct {
	Expected *int `json:"expected,omitempty"`
}

// errorResponse is written for every non 2xx API answer.
type errorResponse struct {
	Error string `json:"error"`
}
