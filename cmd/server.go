package cmd

import (
	"echofm/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the EchoFM HTTP server",
	Long:  "Start the EchoFM HTTP server, serving the catalog, feed, auth and library APIs.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
