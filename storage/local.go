package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalRoute 本地文件对外的访问路径
const LocalRoute = "/"

// LocalStore 本地磁盘存储，Root 对应 /uploads/ 的父目录
type LocalStore struct {
	root string
}

// NewLocalStore 创建本地存储，uploadDir 不存在时创建
func NewLocalStore(uploadDir string) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{root: uploadDir}, nil
}

// Dir 上传目录
func (s *LocalStore) Dir() string { return s.root }

func (s *LocalStore) path(key string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+key), "/")
	rel = strings.TrimPrefix(rel, UploadPrefix)
	if rel == "" || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrNotFound
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// Put 写入文件
func (s *LocalStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := objectKey(name)
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return LocalRoute + key, nil
}

// List 列出上传目录中的文件
func (s *LocalStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := UploadPrefix + filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
			ContentType:  mime.TypeByExtension(filepath.Ext(p)),
		})
		return nil
	})
	return objects, err
}

// Open 打开文件
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, Object{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Object{}, err
	}
	return f, Object{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime(),
		ContentType:  mime.TypeByExtension(filepath.Ext(p)),
	}, nil
}
