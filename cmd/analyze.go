package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"DHX/config"
	"DHX/core/analysis"
	"DHX/core/ingest"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type analyzeRow struct {
	file   string
	artist string
	title  string
	bpm    int
	key    string
	err    error
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "分析本地音频的BPM和调性",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		svc := analysis.NewService(analysis.NewChainDecoder(cfg.FFmpegPath))

		var bar *progressbar.ProgressBar
		if len(args) > 1 {
			bar = progressbar.Default(int64(len(args)), "analysing")
		}

		rows := make([]analyzeRow, 0, len(args))
		for _, path := range args {
			name := filepath.Base(path)
			row := analyzeRow{file: name}
			row.artist, row.title = ingest.ParseFileName(name)

			data, err := os.ReadFile(path)
			if err == nil {
				res, aerr := svc.AnalyzeFile(cmd.Context(), data)
				row.bpm, row.key, err = res.BPM, res.Key, aerr
			}
			row.err = err
			rows = append(rows, row)
			if bar != nil {
				_ = bar.Add(1)
			}
		}
		if bar != nil {
			_ = bar.Finish()
			fmt.Println()
		}

		failed := 0
		for _, r := range rows {
			if r.err != nil {
				failed++
				fmt.Printf("%-40s  error: %v\n", r.file, r.err)
				continue
			}
			fmt.Printf("%-40s  %3d BPM  %-6s  %s - %s\n", r.file, r.bpm, r.key, r.artist, r.title)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files could not be analysed", failed, len(rows))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
