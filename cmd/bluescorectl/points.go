package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/woozymasta/bluescore/internal/models"
)

func makePointsCommand() *cobra.Command {
	var expect int

	cmd := &cobra.Command{
		Use:   "points",
		Short: "Manual score overrides",
	}
	cmd.PersistentFlags().IntVar(&expect, "expect", -1, "Abort unless the team currently has this total")

	// -1 means no expectation; totals are never negative
	expected := func() *int {
		if expect < 0 {
			return nil
		}
		return &expect
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add TEAM AMOUNT",
		Short: "Add points to a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return report(c.AddPoints(args[0], args[1], expected()))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "subtract TEAM AMOUNT",
		Short: "Subtract points from a team",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return report(c.SubtractPoints(args[0], args[1], expected()))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset TEAM",
		Short: "Set a team score to zero",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return report(c.Reset(args[0], expected()))
		},
	})

	return cmd
}

func report(res *models.OverrideResult, err error) error {
	if err != nil {
		return err
	}

	log.Info().
		Str("team", res.TeamID).
		Str("operation", res.Operation).
		Int("before", res.Before).
		Int("after", res.After).
		Int("rank", res.Rank).
		Msg("Updated score")

	return nil
}
