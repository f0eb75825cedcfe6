package cmd

import (
	"stillfm/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the stillfm HTTP server",
	Long:  `Starts the stillfm API server: manifestation generation, the sleep-story catalog and per-session playback.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
