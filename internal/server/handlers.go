package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/bluescore/internal/dispatcher"
	"github.com/woozymasta/bluescore/internal/models"
	"github.com/woozymasta/bluescore/internal/override"
	"github.com/woozymasta/bluescore/internal/vars"
)

// rawAmt holds the amount exactly as the client sent it, string or number.
type rawAmt string

// UnmarshalJSON accepts a JSON string or a bare JSON number.
func (a *rawAmt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = rawAmt(s)
	default:
		*a = rawAmt(data)
	}

	return nil
}

// handleScores serves the scoreboard document with ETag revalidation.
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Scoreboard.Document(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to build scoreboard")
		writeError(w, http.StatusServiceUnavailable, errors.New("scoreboard unavailable"))
		return
	}

	w.Header().Set("ETag", doc.ETag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatch(match, doc.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc.Body)
}

// handleLastCycle returns the summary of the most recent check cycle.
func (s *Server) handleLastCycle(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Store.LastCycle(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch last cycle")
		writeError(w, http.StatusInternalServerError, errors.New("database error"))
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, errors.New("no check cycle has run yet"))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleRunChecks triggers a check cycle and waits for its summary.
// The cycle is detached from the request so a dropped client does not cut it short.
func (s *Server) handleRunChecks(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Cycles.RunCycle(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, dispatcher.ErrCycleInProgress):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, dispatcher.ErrRegistryUnavailable):
		log.Error().Err(err).Msg("Triggered cycle aborted")
		writeError(w, http.StatusServiceUnavailable, dispatcher.ErrRegistryUnavailable)
		return
	case err != nil:
		log.Error().Err(err).Msg("Triggered cycle failed")
		writeError(w, http.StatusInternalServerError, errors.New("check cycle failed"))
		return
	}

	log.Info().
		Str("ip", GetRealIP(r, s.trustProxy)).
		Int64("cycle", summary.ID).
		Int("completed", summary.ChecksCompleted).
		Msg("Check cycle triggered manually")

	writeJSON(w, http.StatusOK, summary)
}

// handleAddPoints adds a manual amount to a team total.
func (s *Server) handleAddPoints(w http.ResponseWriter, r *http.Request) {
	s.handleAmount(w, r, s.deps.Overrides.AddPoints)
}

// handleSubtractPoints subtracts a manual amount from a team total.
func (s *Server) handleSubtractPoints(w http.ResponseWriter, r *http.Request) {
	s.handleAmount(w, r, s.deps.Overrides.SubtractPoints)
}

func (s *Server) handleAmount(
	w http.ResponseWriter,
	r *http.Request,
	op func(context.Context, override.Request) (*models.OverrideResult, error),
) {
	var body amountRequest
	if err := s.decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := op(r.Context(), override.Request{
		TeamID:   r.PathValue("id"),
		Amount:   string(body.Amount),
		Expected: body.Expected,
	})
	s.writeOverride(w, r, res, err)
}

// handleReset sets a team total to zero.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var body resetRequest
	if err := s.decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.deps.Overrides.ResetScore(r.Context(), override.Request{
		TeamID:   r.PathValue("id"),
		Expected: body.Expected,
	})
	s.writeOverride(w, r, res, err)
}

// handleHealth reports whether the database answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		writeError(w, http.StatusServiceUnavailable, errors.New("database unavailable"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": vars.Short()})
}

// handleVersion serves the build metadata of the running binary.
func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, vars.Info())
}

func (s *Server) writeOverride(w http.ResponseWriter, r *http.Request, res *models.OverrideResult, err error) {
	switch {
	case errors.Is(err, override.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, override.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, override.ErrStaleScore):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		log.Error().Err(err).Str("team", r.PathValue("id")).Msg("Score override failed")
		writeError(w, http.StatusInternalServerError, errors.New("score override failed"))
	default:
		log.Debug().
			Str("ip", GetRealIP(r, s.trustProxy)).
			Str("team", res.TeamID).
			Str("operation", res.Operation).
			Msg("Override request served")
		writeJSON(w, http.StatusOK, res)
	}
}

// decodeBody reads a size limited JSON body; an empty body leaves dst untouched.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON body")
	}

	return nil
}

// etagMatch compares an If-None-Match header against the current tag, weak tags included.
func etagMatch(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}

	return false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}
