package cmd

import (
	"context"
	"fmt"
	"time"

	"DHX/config"
	"DHX/server"
	"DHX/storage"

	"github.com/spf13/cobra"
)

var storagePrefix string

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "查看已上传的音频",
	Long:  `列出存储中的上传文件（MinIO 存储桶或本地上传目录）并打印统计信息。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		store, err := server.OpenStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("无法打开存储: %w", err)
		}
		objects, err := store.List(ctx, storagePrefix)
		if err != nil {
			return err
		}

		stats := storage.Summarize(objects)
		fmt.Printf("前缀过滤: %q\n", storagePrefix)
		fmt.Printf("总文件数: %d\n", stats.TotalObjects)
		fmt.Printf("总存储大小: %s\n", storage.FormatSize(stats.TotalSize))
		if stats.TotalObjects > 0 {
			fmt.Printf("最后更新时间: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
		for _, obj := range objects {
			fmt.Printf("  ├─ %s (%s, %s)\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	storageCmd.Flags().StringVarP(&storagePrefix, "prefix", "p", storage.UploadPrefix, "对象前缀")
	rootCmd.AddCommand(storageCmd)
}
