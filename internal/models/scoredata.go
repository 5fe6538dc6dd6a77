package models

import "time"

// ScoreData is the read document consumed by scoreboard views.
type ScoreData struct {
	LastUpdate  time.Time       `json:"lastUpdate"`
	Competition CompetitionInfo `json:"competition"`
	Teams       []TeamView      `json:"teams"`
	Round       int             `json:"round"`
}

// TeamView is one ranked row of the scoreboard.
type TeamView struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Address    string        `json:"address"`
	Services   []ServiceView `json:"services"`
	TotalScore int           `json:"totalScore"`
	Rank       int           `json:"rank"`
}

// ServiceView is the status of one service of a team.
type ServiceView struct {
	LastChecked *time.Time `json:"lastChecked"`
	Name        string     `json:"name"`
	Protocol    string     `json:"protocol"`
	Status      Status     `json:"status"`
	Port        int        `json:"port"`
	Uptime      float64    `json:"uptime"`
	Points      int        `json:"points"`
}

// CompetitionInfo describes the event schedule.
type CompetitionInfo struct {
	StartTime       time.Time `json:"startTime"`
	Name            string    `json:"name"`
	DurationSeconds int64     `json:"durationSeconds"`
}
