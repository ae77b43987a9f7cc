package cmd

import (
	"fmt"
	"os"

	"DHX/config"
	"DHX/logger"
	"DHX/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dhx",
	Short: "DHX is a two-deck DJ mixer with BPM and key analysis.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(config.Load())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(config.Load())
	},
	SilenceUsage: true,
}

func initLogger(cfg *config.Config) {
	logger.InitLogger(logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	})
}

// Execute executes the root command.
func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
