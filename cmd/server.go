package cmd

import (
	"DHX/config"
	"DHX/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动DHX服务器",
	Long:  `启动DHX混音台的HTTP和WebSocket服务`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(config.Load())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
