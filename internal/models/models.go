// Package models defines the data structures used for API responses and database persistence.
package models

import "time"

// Status is the observed health of one (team, service) pair.
type Status string

const (
	// StatusUp means the last probe succeeded.
	StatusUp Status = "up"
	// StatusDown means the last probe failed or timed out.
	StatusDown Status = "down"
	// StatusUnknown is the state before the first probe.
	StatusUnknown Status = "unknown"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusUp, StatusDown, StatusUnknown:
		return true
	}

	return false
}

// Protocol tags understood by the probe engine. Any other tag is probed as plain TCP.
const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
	ProtocolA2S   = "a2s"
	ProtocolTCP   = "tcp"
)

// DefaultPointValue is awarded for a service that is up when no explicit value is set.
const DefaultPointValue = 100

// Team is a competing group owning one address that hosts all of its services.
type Team struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`

	// Seq is the registration order, used as the rank tie-break.
	Seq int64 `json:"seq"`
}

// Service is a check definition applied to every team.
type Service struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Protocol   string    `json:"protocol"`
	Port       int       `json:"port"`
	PointValue int       `json:"point_value"`
	Seq        int64     `json:"seq"`
}

// Target is a single probe destination.
type Target struct {
	Address  string
	Protocol string
	Port     int
}

// Outcome is the result of one probe.
type Outcome struct {
	CheckedAt    time.Time     `json:"checked_at"`
	Status       Status        `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
}

// CheckRecord is the latest known state of one (team, service) pair.
type CheckRecord struct {
	LastChecked time.Time `json:"last_checked"`
	TeamID      string    `json:"team_id"`
	ServiceID   string    `json:"service_id"`
	Status      Status    `json:"status"`

	// ResponseTime in milliseconds, nil until the first probe.
	ResponseTime *int64 `json:"response_time"`

	Points int     `json:"points"`
	Uptime float64 `json:"uptime_percentage"`

	// CycleID of the cycle that wrote this record last.
	CycleID int64 `json:"cycle_id"`
	// History holds one bit per sampled cycle, lowest bit is the newest.
	History uint64 `json:"-"`
	Samples int    `json:"-"`
}

// TeamScore is the persisted scoring state of one team.
type TeamScore struct {
	UpdatedAt time.Time `json:"updated_at"`
	TeamID    string    `json:"team_id"`
	Name      string    `json:"name"`

	// Checks of the team, loaded for aggregation only.
	Checks []CheckRecord `json:"-"`

	Seq        int64 `json:"seq"`
	Automated  int   `json:"automated"`
	Adjustment int   `json:"adjustment"`
	Total      int   `json:"total_score"`
	Rank       int   `json:"rank"`
}

// Competition holds the schedule of the running event.
type Competition struct {
	StartTime     time.Time     `json:"start_time"`
	Name          string        `json:"name"`
	Duration      time.Duration `json:"duration"`
	RoundDuration time.Duration `json:"round_duration"`
}

// CycleSummary is the outcome of one dispatcher cycle.
type CycleSummary struct {
	StartedAt       time.Time      `json:"startedAt"`
	FinishedAt      time.Time      `json:"finishedAt"`
	PerStatusCounts map[Status]int `json:"perStatusCounts"`
	Error           string         `json:"error,omitempty"`
	ID              int64          `json:"id"`
	ChecksCompleted int            `json:"checksCompleted"`
	Skipped         int            `json:"skipped"`
	RecordErrors    int            `json:"recordErrors"`
}

// OverrideResult is returned by every manual score operation.
type OverrideResult struct {
	TeamID    string `json:"teamId"`
	Operation string `json:"operation"`
	Amount    int    `json:"amount"`
	// Before is the total the operation was applied to, including checks recorded since the last recompute.
	Before    int    `json:"before"`
	After     int    `json:"after"`
	Rank      int    `json:"rank"`
}
