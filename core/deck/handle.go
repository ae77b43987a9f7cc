package deck

import (
	"errors"
	"sync"

	"DHX/model"
)

var (
	ErrHandleClosed = errors.New("playback handle closed")
	ErrNoSource     = errors.New("playback handle has no source")
)

// Callbacks 句柄回调，实现方不得在调用句柄的协程中触发
type Callbacks struct {
	OnProgress       func(current, duration float64)
	OnLoadedMetadata func(duration float64)
	OnEnded          func()
}

// Handle 播放句柄
type Handle interface {
	Load(source string)
	Play() error
	Pause()
	SeekTo(seconds float64)
	CurrentTime() float64
	Duration() float64
	SetVolume(v float64)
	SetCallbacks(cb Callbacks)
	Close()
}

// HandleFactory 为即将装载的曲目创建句柄
type HandleFactory func(t model.Track) Handle

// Registry 按曲目 ID 管理播放句柄
type Registry struct {
	mu      sync.Mutex
	factory HandleFactory
	handles map[string]Handle
}

func NewRegistry(factory HandleFactory) *Registry {
	return &Registry{factory: factory, handles: make(map[string]Handle)}
}

// Acquire 获取曲目句柄，不存在时创建
func (r *Registry) Acquire(t model.Track) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[t.ID]; ok {
		return h
	}
	h := r.factory(t)
	r.handles[t.ID] = h
	return h
}

// Release 关闭并移除句柄
func (r *Registry) Release(id string) {
	r.mu.Lock()
	h, ok := r.handles[id]
	delete(r.handles, id)
	r.mu.Unlock()
	if ok {
		h.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[id]
	return ok
}

// Close 释放全部句柄
func (r *Registry) Close() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]Handle)
	r.mu.Unlock()
	for _, h := range handles {
		h.Close()
	}
}
