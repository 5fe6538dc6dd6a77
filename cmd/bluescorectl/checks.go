package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/woozymasta/bluescore/internal/models"
)

func makeChecksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checks",
		Short: "Check cycle commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run a check cycle now and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runChecks()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "last",
		Short: "Print the summary of the last check cycle",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return lastCycle()
		},
	})

	return cmd
}

func runChecks() error {
	c, err := newClient()
	if err != nil {
		return err
	}

	summary, err := c.RunChecks()
	if err != nil {
		return err
	}

	logSummary(summary, "Check cycle finished")
	return nil
}

func lastCycle() error {
	c, err := newClient()
	if err != nil {
		return err
	}

	summary, err := c.LastCycle()
	if err != nil {
		return err
	}

	logSummary(summary, "Last check cycle")
	return nil
}

func logSummary(s *models.CycleSummary, msg string) {
	log.Info().
		Int64("cycle", s.ID).
		Int("completed", s.ChecksCompleted).
		Int("up", s.PerStatusCounts[models.StatusUp]).
		Int("down", s.PerStatusCounts[models.StatusDown]).
		Int("skipped", s.Skipped).
		Int("record_errors", s.RecordErrors).
		Dur("duration", s.FinishedAt.Sub(s.StartedAt)).
		Msg(msg)
}
