// Package deck 混音器的单个播放位及其播放句柄
package deck

import (
	"DHX/logger"
	"DHX/model"
)

// Controller 单个唱盘：当前曲目、播放句柄、播放状态和进度
// 方法只能在同一个协程中调用，句柄回调只负责转发事件
type Controller struct {
	pos        model.DeckPosition
	observer   Observer
	state      model.DeckState
	track      model.Track
	handle     Handle
	progress   model.Progress
	volume     float64
	generation uint64
}

// NewController 创建空唱盘
func NewController(pos model.DeckPosition, observer Observer) *Controller {
	return &Controller{
		pos:      pos,
		observer: observer,
		state:    model.DeckEmpty,
		track:    model.PlaceholderTrack(pos),
		volume:   1,
	}
}

func (c *Controller) Position() model.DeckPosition { return c.pos }
func (c *Controller) State() model.DeckState       { return c.state }
func (c *Controller) Track() model.Track           { return c.track }
func (c *Controller) Progress() model.Progress     { return c.progress }
func (c *Controller) Volume() float64              { return c.volume }
func (c *Controller) Generation() uint64           { return c.generation }
func (c *Controller) IsEmpty() bool                { return c.state == model.DeckEmpty }
func (c *Controller) IsPlaying() bool              { return c.state == model.DeckLoadedPlaying }

// Holds 判断唱盘是否装载了指定曲目
func (c *Controller) Holds(id string) bool {
	return !c.IsEmpty() && c.track.ID == id
}

// Load 装载曲目，暂停在开头；唱盘必须为空
func (c *Controller) Load(t model.Track, h Handle) {
	c.generation++
	gen := c.generation

	t.Deck = c.pos
	t.Position = 0
	c.track = t
	c.handle = h
	c.state = model.DeckLoadedPaused
	c.progress = model.Progress{Duration: t.Duration}

	h.SetCallbacks(c.callbacks(gen))
	h.Load(t.AudioSource)
	h.SetVolume(c.volume)
}

func (c *Controller) callbacks(gen uint64) Callbacks {
	hdr := eventHeader{Deck: c.pos, Generation: gen}
	obs := c.observer
	return Callbacks{
		OnProgress: func(current, duration float64) {
			obs.OnDeckEvent(Progress{eventHeader: hdr, Time: current, Duration: duration})
		},
		OnLoadedMetadata: func(duration float64) {
			obs.OnDeckEvent(MetadataLoaded{eventHeader: hdr, Duration: duration})
		},
		OnEnded: func() {
			obs.OnDeckEvent(Ended{eventHeader: hdr})
		},
	}
}

// Play 开始或继续播放；句柄启动失败时记录日志并保持暂停
func (c *Controller) Play() {
	if c.state != model.DeckLoadedPaused {
		return
	}
	if err := c.handle.Play(); err != nil {
		logger.Warn("playback failed to start",
			logger.String("deck", string(c.pos)),
			logger.String("trackId", c.track.ID),
			logger.ErrorField(err))
		return
	}
	c.state = model.DeckLoadedPlaying
}

func (c *Controller) Pause() {
	if c.state != model.DeckLoadedPlaying {
		return
	}
	c.handle.Pause()
	c.state = model.DeckLoadedPaused
}

// Toggle 切换播放/暂停
func (c *Controller) Toggle() {
	switch c.state {
	case model.DeckLoadedPlaying:
		c.Pause()
	case model.DeckLoadedPaused:
		c.Play()
	}
}

// Stop 暂停并回到开头，不卸载曲目
func (c *Controller) Stop() {
	if c.IsEmpty() {
		return
	}
	c.Pause()
	c.handle.SeekTo(0)
	c.track.Position = 0
	c.progress.CurrentTime = 0
}

// Unload 停止并清空唱盘，返回曲目和句柄，由调用方释放句柄
func (c *Controller) Unload() (model.Track, Handle, bool) {
	if c.IsEmpty() {
		return model.Track{}, nil, false
	}
	c.handle.Pause()
	c.handle.SeekTo(0)
	return c.detach()
}

// Finish 曲目播放结束后清空唱盘
func (c *Controller) Finish() (model.Track, Handle, bool) {
	if c.IsEmpty() {
		return model.Track{}, nil, false
	}
	return c.detach()
}

func (c *Controller) detach() (model.Track, Handle, bool) {
	t, h := c.track, c.handle
	h.SetCallbacks(Callbacks{})
	c.generation++
	c.track = model.PlaceholderTrack(c.pos)
	c.handle = nil
	c.state = model.DeckEmpty
	c.progress = model.Progress{}

	t.Deck = model.DeckNone
	t.Position = 0
	return t, h, true
}

// Current 判断事件是否属于当前装载的曲目
func (c *Controller) Current(e Event) bool {
	return !c.IsEmpty() && e.DeckPosition() == c.pos && e.LoadGeneration() == c.generation
}

// ApplyProgress 记录播放进度，过期事件被忽略
func (c *Controller) ApplyProgress(e Progress) bool {
	if !c.Current(e) {
		return false
	}
	c.progress = model.Progress{CurrentTime: e.Time, Duration: e.Duration}
	c.track.Position = e.Time
	if e.Duration > 0 {
		c.track.Duration = e.Duration
	}
	return true
}

// ApplyMetadata 记录句柄上报的时长
func (c *Controller) ApplyMetadata(e MetadataLoaded) bool {
	if !c.Current(e) {
		return false
	}
	c.progress.Duration = e.Duration
	c.track.Duration = e.Duration
	return true
}

// SetVolume 设置句柄音量，scale 同步到曲目记录
func (c *Controller) SetVolume(v, scale float64) {
	c.volume = v
	c.track.VolumeScale = scale
	if c.handle != nil {
		c.handle.SetVolume(v)
	}
}

// UpdateTrack 更新当前曲目的元数据
func (c *Controller) UpdateTrack(fn func(*model.Track)) bool {
	if c.IsEmpty() {
		return false
	}
	fn(&c.track)
	c.track.Deck = c.pos
	return true
}

// Snapshot 返回唱盘状态副本
func (c *Controller) Snapshot() model.DeckSnapshot {
	return model.DeckSnapshot{
		Position: c.pos,
		State:    c.state,
		Track:    c.track,
		Progress: c.progress,
		Volume:   c.volume,
	}
}
