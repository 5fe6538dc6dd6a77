package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func makeScoresCommand() *cobra.Command {
	var services bool

	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Print the scoreboard",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return dumpScores(services)
		},
	}
	cmd.Flags().BoolVarP(&services, "services", "s", false, "Print per service status")

	return cmd
}

func dumpScores(services bool) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	data, err := c.Scores()
	if err != nil {
		return err
	}

	fmt.Printf("%s, round %d\n", data.Competition.Name, data.Round)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tTEAM\tID\tSCORE")
	for _, t := range data.Teams {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", t.Rank, t.Name, t.ID, t.TotalScore)
		if !services {
			continue
		}
		for _, s := range t.Services {
			fmt.Fprintf(w, "\t  %s %s/%d\t%s\t%d (%.1f%%)\n", s.Name, s.Protocol, s.Port, s.Status, s.Points, s.Uptime)
		}
	}

	return w.Flush()
}
