// bluescorectl is the admin command line for a running bluescore server.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/woozymasta/bluescore/internal/vars"
	"github.com/woozymasta/bluescore/pkg/client"
)

var (
	endpoint string
	token    string

	rootCmd = &cobra.Command{
		Use:           "bluescorectl",
		Short:         "Bluescore admin client",
		Version:       vars.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func newClient() (*client.Client, error) {
	return client.NewClient(endpoint, token)
}

func initLogging() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
		With().Timestamp().Logger()
}

func initCommands() {
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", envOr("BLUESCORE_ENDPOINT", "http://localhost:8080"), "Server base URL")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", os.Getenv("BLUESCORE_AUTH_TOKEN"), "Admin token")

	rootCmd.AddCommand(makeChecksCommand())
	rootCmd.AddCommand(makeScoresCommand())
	rootCmd.AddCommand(makePointsCommand())
	rootCmd.AddCommand(makeVersionCommand())
}

func makeVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print client and server versions",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Printf("client: %s\n", vars.Short())

			c, err := newClient()
			if err != nil {
				return err
			}
			build, err := c.Version()
			if err != nil {
				return err
			}

			fmt.Printf("server: %s %s (%s)\n", build.Name, build.Version, build.Commit)
			return nil
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func init() {
	initLogging()
	initCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %s\n", err.Error())
		os.Exit(1)
	}
}
