package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadPrefix 上传文件在存储中的目录
const UploadPrefix = "uploads/"

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// Object 文件信息
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ContentType  string    `json:"contentType"`
}

// Stats 存储统计信息
type Stats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// Store 上传音频的存储后端
type Store interface {
	// Put 存储数据并返回音频的访问地址
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
}

// objectKey 生成唯一且安全的对象名
func objectKey(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '?', '#', '%', '"', '<', '>':
			return '_'
		}
		return r
	}, base)
	if base == "." || base == "/" || base == "" {
		base = "track.mp3"
	}
	return UploadPrefix + uuid.NewString() + "-" + base
}

// Summarize 统计对象列表
func Summarize(objects []Object) Stats {
	var s Stats
	for _, o := range objects {
		s.TotalObjects++
		s.TotalSize += o.Size
		if o.LastModified.After(s.LastModified) {
			s.LastModified = o.LastModified
		}
	}
	return s
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
