package cmd

import (
	"fmt"
	"os"

	"echofm/logger"
	"echofm/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "echofm",
	Short: "EchoFM is a music discovery backend.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute runs the root command.
func Execute() {
	logger.Init(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: "logs/echofm.log",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
