// Package resolver 将点歌文本解析为可播放的远程音源
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Resolution 解析结果
type Resolution struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Source   string  `json:"source"` // spotify, youtube
	Duration float64 `json:"duration,omitempty"`
}

// Resolver 曲目解析器接口
type Resolver interface {
	Resolve(ctx context.Context, query string) (*Resolution, error)
	Name() string
}

// ResolutionError 解析失败
type ResolutionError struct {
	Query string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not resolve %q: %v", e.Query, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ErrNoResolver 未注册任何解析器
var ErrNoResolver = errors.New("no resolver configured")

// Manager 解析器注册表
type Manager struct {
	mu          sync.RWMutex
	resolvers   map[string]Resolver
	defaultName string
}

// NewManager 创建解析器管理器
func NewManager() *Manager {
	return &Manager{resolvers: make(map[string]Resolver)}
}

// Register 注册解析器，第一个注册的作为默认
func (m *Manager) Register(r Resolver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvers[r.Name()] = r
	if m.defaultName == "" {
		m.defaultName = r.Name()
	}
}

// SetDefault 指定默认解析器
func (m *Manager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resolvers[name]; !ok {
		return fmt.Errorf("resolver %q not registered", name)
	}
	m.defaultName = name
	return nil
}

// Get 获取指定解析器
func (m *Manager) Get(name string) Resolver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolvers[name]
}

// Default 获取默认解析器
func (m *Manager) Default() Resolver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolvers[m.defaultName]
}

// Resolve 使用默认解析器，并补全缺失的艺人名
func (m *Manager) Resolve(ctx context.Context, query string) (*Resolution, error) {
	r := m.Default()
	if r == nil {
		return nil, &ResolutionError{Query: query, Err: ErrNoResolver}
	}
	res, err := r.Resolve(ctx, query)
	if err != nil {
		var re *ResolutionError
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, &ResolutionError{Query: query, Err: err}
	}
	if res.URL == "" {
		return nil, &ResolutionError{Query: query, Err: errors.New("empty url")}
	}
	if res.Title == "" {
		res.Title = query
	}
	if res.Artist == "" {
		res.Artist = ExtractArtist(res.Title)
	}
	return res, nil
}

// Name 实现 Resolver
func (m *Manager) Name() string { return "manager" }
