// Package override implements the manual score operations available to competition admins.
package override

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bluescore/internal/metrics"
	"github.com/woozymasta/bluescore/internal/models"
	"github.com/woozymasta/bluescore/internal/scoring"
)

// Operation names.
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpReset    = "reset"
)

var (
	// ErrInvalidAmount is returned when the amount is not a non-zero integer.
	ErrInvalidAmount = errors.New("override: amount must be a non-zero integer")
	// ErrStaleScore is returned when the expected pre-state no longer matches the stored total.
	ErrStaleScore = errors.New("override: score changed since it was read")
	// ErrTeamNotFound is returned for unknown team ids.
	ErrTeamNotFound = scoring.ErrTeamNotFound
)

// Adjuster applies a score change to one team and re-ranks everyone.
type Adjuster interface {
	Adjust(ctx context.Context, teamID string, fn scoring.AdjustFunc) (before, after models.TeamScore, standings []models.TeamScore, err error)
}

// Request describes one manual operation.
type Request struct {
	// Expected is the total the operator saw; when set, a different stored total aborts the operation.
	Expected *int
	TeamID   string
	Amount   string
}

// Service validates and applies manual score operations.
type Service struct {
	board Adjuster
}

// New creates an override Service on top of the scoring board.
func New(board Adjuster) *Service {
	return &Service{board: board}
}

// ParseAmount accepts a base-10 integer with optional surrounding whitespace and rejects zero.
func ParseAmount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	return n, nil
}

// AddPoints raises the team total by the amount, never below zero.
func (s *Service) AddPoints(ctx context.Context, req Request) (*models.OverrideResult, error) {
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, OpAdd, amount, req, func(cur int) int { return cur + amount })
}

// SubtractPoints lowers the team total by the amount, never below zero.
func (s *Service) SubtractPoints(ctx context.Context, req Request) (*models.OverrideResult, error) {
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, OpSubtract, amount, req, func(cur int) int { return cur - amount })
}

// ResetScore sets the team total to exactly zero.
func (s *Service) ResetScore(ctx context.Context, req Request) (*models.OverrideResult, error) {
	return s.apply(ctx, OpReset, 0, req, func(int) int { return 0 })
}

func (s *Service) apply(ctx context.Context, op string, amount int, req Request, next func(int) int) (*models.OverrideResult, error) {
	if strings.TrimSpace(req.TeamID) == "" {
		return nil, ErrTeamNotFound
	}

	before, after, _, err := s.board.Adjust(ctx, req.TeamID, func(published, cur int) (int, error) {
		if req.Expected != nil && *req.Expected != published {
			return 0, fmt.Errorf("%w: expected %d, stored %d", ErrStaleScore, *req.Expected, published)
		}
		return scoring.Clamp(next(cur)), nil
	})
	if err != nil {
		log.Warn().Err(err).Str("team", req.TeamID).Str("operation", op).Msg("Score override rejected")
		return nil, err
	}

	metrics.RecordOverride(op)
	log.Info().
		Str("team", req.TeamID).
		Str("operation", op).
		Int("amount", amount).
		Int("before", before.Total).
		Int("after", after.Total).
		Int("rank", after.Rank).
		Msg("Score override applied")

	return &models.OverrideResult{
		TeamID:    req.TeamID,
		Operation: op,
		Amount:    amount,
		Before:    before.Total,
		After:     after.Total,
		Rank:      after.Rank,
	}, nil
}
