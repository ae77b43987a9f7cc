package deck

import (
	"context"
	"sync"
	"time"

	"DHX/logger"
	"DHX/model"
)

// DefaultProgressInterval 播放进度上报间隔
const DefaultProgressInterval = 250 * time.Millisecond

// DurationProber 查询曲目未携带的时长
type DurationProber func(ctx context.Context, source string) (float64, error)

// ClockHandle 代替音频设备的走带时钟
// 维护真实播放器应有的位置，并触发相同的回调
type ClockHandle struct {
	mu       sync.Mutex
	interval time.Duration
	probe    DurationProber
	now      func() time.Time

	source   string
	duration float64
	position float64
	started  time.Time
	volume   float64
	playing  bool
	closed   bool
	stop     chan struct{}
	cb       Callbacks
}

// NewClockHandle 创建时钟；时长为 0 且提供了 probe 时通过 probe 获取
func NewClockHandle(interval time.Duration, duration float64, probe DurationProber) *ClockHandle {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &ClockHandle{
		interval: interval,
		duration: duration,
		probe:    probe,
		now:      time.Now,
		volume:   1,
	}
}

// ClockFactory 为句柄注册表创建 ClockHandle
func ClockFactory(interval time.Duration, probe DurationProber) HandleFactory {
	return func(t model.Track) Handle {
		return NewClockHandle(interval, t.Duration, probe)
	}
}

func (h *ClockHandle) SetCallbacks(cb Callbacks) {
	h.mu.Lock()
	h.cb = cb
	h.mu.Unlock()
}

// Load 重置时钟并异步上报时长
func (h *ClockHandle) Load(source string) {
	h.mu.Lock()
	h.stopLocked()
	h.source = source
	h.position = 0
	duration := h.duration
	cb := h.cb
	h.mu.Unlock()

	go func() {
		if duration <= 0 && h.probe != nil && source != "" {
			d, err := h.probe(context.Background(), source)
			if err != nil {
				logger.Debug("duration probe failed",
					logger.String("source", source),
					logger.ErrorField(err))
				return
			}
			h.mu.Lock()
			if h.closed || h.source != source {
				h.mu.Unlock()
				return
			}
			h.duration = d
			duration = d
			cb = h.cb
			h.mu.Unlock()
		}
		if cb.OnLoadedMetadata != nil && duration > 0 {
			cb.OnLoadedMetadata(duration)
		}
	}()
}

// Play 启动时钟
func (h *ClockHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.closed:
		return ErrHandleClosed
	case h.source == "":
		return ErrNoSource
	case h.playing:
		return nil
	}
	if h.duration > 0 && h.position >= h.duration {
		h.position = 0
	}
	h.playing = true
	h.started = h.now()
	h.stop = make(chan struct{})
	go h.run(h.stop)
	return nil
}

func (h *ClockHandle) run(stop chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.mu.Lock()
			if !h.playing || h.stop != stop {
				h.mu.Unlock()
				return
			}
			pos := h.positionLocked()
			ended := h.duration > 0 && pos >= h.duration
			if ended {
				h.position = h.duration
				h.stopLocked()
				pos = h.duration
			}
			duration, cb := h.duration, h.cb
			h.mu.Unlock()

			if cb.OnProgress != nil {
				cb.OnProgress(pos, duration)
			}
			if ended {
				if cb.OnEnded != nil {
					cb.OnEnded()
				}
				return
			}
		}
	}
}

// Pause 冻结时钟，不等待计时协程退出
func (h *ClockHandle) Pause() {
	h.mu.Lock()
	h.stopLocked()
	h.mu.Unlock()
}

func (h *ClockHandle) stopLocked() {
	if !h.playing {
		return
	}
	h.position = h.positionLocked()
	h.playing = false
	close(h.stop)
	h.stop = nil
}

func (h *ClockHandle) positionLocked() float64 {
	pos := h.position
	if h.playing {
		pos += h.now().Sub(h.started).Seconds()
	}
	if h.duration > 0 && pos > h.duration {
		pos = h.duration
	}
	return pos
}

// SeekTo 跳转，限制在曲目范围内
func (h *ClockHandle) SeekTo(seconds float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	seconds = max(seconds, 0)
	if h.duration > 0 {
		seconds = min(seconds, h.duration)
	}
	h.position = seconds
	if h.playing {
		h.started = h.now()
	}
}

func (h *ClockHandle) CurrentTime() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.positionLocked()
}

func (h *ClockHandle) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.duration
}

func (h *ClockHandle) SetVolume(v float64) {
	h.mu.Lock()
	h.volume = v
	h.mu.Unlock()
}

func (h *ClockHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *ClockHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

// Close 停止时钟并丢弃回调
func (h *ClockHandle) Close() {
	h.mu.Lock()
	h.stopLocked()
	h.closed = true
	h.cb = Callbacks{}
	h.mu.Unlock()
}
