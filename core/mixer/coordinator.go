// Package mixer 协调两个唱盘、队列和播放历史
//
// 所有修改都在 Run 启动的协程中执行。公开方法把闭包交给该循环并等待结果，
// 唱盘事件和确认倒计时也投递到同一个循环。
package mixer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"DHX/core/deck"
	"DHX/core/queue"
	"DHX/core/resolver"
	"DHX/logger"
	"DHX/model"

	"github.com/google/uuid"
)

var (
	ErrStopped          = errors.New("mixer stopped")
	ErrAlreadyRunning   = errors.New("mixer already running")
	ErrInvalidDeck      = errors.New("invalid deck position")
	ErrUnknownTrack     = errors.New("unknown track")
	ErrTrackOnDeck      = errors.New("track is loaded on the other deck")
	ErrNoPendingTrack   = errors.New("no track awaiting confirmation")
	ErrRequestCancelled = errors.New("track request cancelled")
	ErrUnsupportedDrop  = errors.New("unsupported drag and drop")
)

// Config 混音器默认值
type Config struct {
	MasterVolume   float64
	ConfirmSeconds int
	ConfirmTick    time.Duration
}

// DefaultConfig 主音量 0.8，确认倒计时 5 秒
func DefaultConfig() Config {
	return Config{MasterVolume: 0.8, ConfirmSeconds: 5, ConfirmTick: time.Second}
}

// Resolver 将点歌文本解析为远程音源
type Resolver interface {
	Resolve(ctx context.Context, query string) (*resolver.Resolution, error)
}

// Analyzer 分析远程音源，不返回错误
type Analyzer interface {
	AnalyzeURL(ctx context.Context, url string) model.AnalysisResult
}

// Listener 每次变更后接收快照
// 在混音器循环中执行，不能阻塞，也不能回调 Coordinator
type Listener func(model.Snapshot)

// Option 配置项
type Option func(*Coordinator)

func WithResolver(r Resolver) Option { return func(c *Coordinator) { c.resolver = r } }
func WithAnalyzer(a Analyzer) Option { return func(c *Coordinator) { c.analyzer = a } }

// WithIDGenerator 替换基于 uuid 的 ID 生成
func WithIDGenerator(fn func() string) Option { return func(c *Coordinator) { c.newID = fn } }

type pendingTrack struct {
	track     model.Track
	countdown int
}

// Coordinator 持有两个唱盘、队列、历史和曲库
type Coordinator struct {
	cfg      Config
	registry *deck.Registry
	decks    map[model.DeckPosition]*deck.Controller
	queue    *queue.Queue
	history  *queue.History
	library  []model.Track

	currentIndex int
	activeDeck   model.DeckPosition
	crossfader   float64
	master       float64
	pending      *pendingTrack
	searching    bool
	requestSeq   uint64
	version      uint64
	listeners    []Listener

	resolver Resolver
	analyzer Analyzer
	newID    func() string

	cmds    chan func()
	events  chan deck.Event
	done    chan struct{}
	running atomic.Bool
}

// New 创建协调器，唱盘句柄由 factory 创建
func New(cfg Config, factory deck.HandleFactory, opts ...Option) *Coordinator {
	if cfg.ConfirmSeconds <= 0 {
		cfg.ConfirmSeconds = DefaultConfig().ConfirmSeconds
	}
	if cfg.ConfirmTick <= 0 {
		cfg.ConfirmTick = DefaultConfig().ConfirmTick
	}
	c := &Coordinator{
		cfg:        cfg,
		registry:   deck.NewRegistry(factory),
		queue:      queue.New(),
		history:    queue.NewHistory(),
		activeDeck: model.DeckLeft,
		crossfader: 0.5,
		master:     clamp01(cfg.MasterVolume),
		newID:      uuid.NewString,
		cmds:       make(chan func()),
		events:     make(chan deck.Event, 64),
		done:       make(chan struct{}),
	}
	c.decks = map[model.DeckPosition]*deck.Controller{
		model.DeckLeft:  deck.NewController(model.DeckLeft, c),
		model.DeckRight: deck.NewController(model.DeckRight, c),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.recomputeVolumes()
	return c
}

// OnDeckEvent 实现 deck.Observer，事件排队交给循环处理
func (c *Coordinator) OnDeckEvent(e deck.Event) {
	select {
	case c.events <- e:
	case <-c.done:
	}
}

// Run 处理命令直到 ctx 取消，退出时释放全部句柄
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)
	defer c.registry.Close()

	ticker := time.NewTicker(c.cfg.ConfirmTick)
	defer ticker.Stop()

	if c.fillDecks() {
		c.changed()
	}
	logger.Info("mixer loop started", logger.Float64("master", c.master))

	for {
		select {
		case <-ctx.Done():
			logger.Info("mixer loop stopped")
			return ctx.Err()
		case fn := <-c.cmds:
			fn()
		case e := <-c.events:
			c.handleEvent(e)
		case <-ticker.C:
			c.tick()
		}
	}
}

// Done Run 返回后关闭
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// do 在循环中执行 fn 并等待
func (c *Coordinator) do(fn func()) error {
	finished := make(chan struct{})
	select {
	case c.cmds <- func() { defer close(finished); fn() }:
	case <-c.done:
		return ErrStopped
	}
	<-finished
	return nil
}

// doErr 在循环中执行 fn 并返回其错误
func (c *Coordinator) doErr(fn func() error) error {
	var err error
	if stopErr := c.do(func() { err = fn() }); stopErr != nil {
		return stopErr
	}
	return err
}

// post 投递 fn 不等待，供后台任务使用
func (c *Coordinator) post(fn func()) {
	go func() {
		select {
		case c.cmds <- fn:
		case <-c.done:
		}
	}()
}

// OnChange 注册快照监听器
func (c *Coordinator) OnChange(l Listener) error {
	return c.do(func() { c.listeners = append(c.listeners, l) })
}

// Snapshot 返回混音器的一致副本
func (c *Coordinator) Snapshot() (model.Snapshot, error) {
	var s model.Snapshot
	err := c.do(func() { s = c.snapshot() })
	return s, err
}

func (c *Coordinator) snapshot() model.Snapshot {
	s := model.Snapshot{
		Version:      c.version,
		Left:         c.decks[model.DeckLeft].Snapshot(),
		Right:        c.decks[model.DeckRight].Snapshot(),
		Queue:        c.queue.Tracks(),
		History:      c.history.Tracks(),
		Library:      append([]model.Track(nil), c.library...),
		CurrentIndex: c.currentIndex,
		ActiveDeck:   c.activeDeck,
		Crossfader:   c.crossfader,
		MasterVolume: c.master,
		Searching:    c.searching,
	}
	if c.pending != nil {
		s.Pending = &model.PendingSnapshot{Track: c.pending.track, Countdown: c.pending.countdown}
	}
	return s
}

// changed 递增版本并通知监听器
func (c *Coordinator) changed() {
	c.version++
	if len(c.listeners) == 0 {
		return
	}
	s := c.snapshot()
	for _, l := range c.listeners {
		l(s)
	}
}

func (c *Coordinator) deck(pos model.DeckPosition) (*deck.Controller, error) {
	d, ok := c.decks[pos]
	if !ok {
		return nil, ErrInvalidDeck
	}
	return d, nil
}

// deckHolding 返回装载了 id 的唱盘
func (c *Coordinator) deckHolding(id string) (model.DeckPosition, bool) {
	for _, pos := range model.Decks {
		if c.decks[pos].Holds(id) {
			return pos, true
		}
	}
	return model.DeckNone, false
}

// loadDeck 用 t 替换 pos 上的曲目，暂停在开头
func (c *Coordinator) loadDeck(pos model.DeckPosition, t model.Track) {
	d := c.decks[pos]
	if !d.IsEmpty() {
		c.unloadDeck(pos)
	}
	d.Load(t, c.registry.Acquire(t))
	c.recomputeVolumes()
}

// unloadDeck 停止并清空 pos，释放句柄
func (c *Coordinator) unloadDeck(pos model.DeckPosition) (model.Track, bool) {
	t, _, ok := c.decks[pos].Unload()
	if !ok {
		return model.Track{}, false
	}
	c.registry.Release(t.ID)
	c.recomputeVolumes()
	return t, true
}

// fillDecks 按左、右顺序把队首装入空唱盘，返回是否有变动
func (c *Coordinator) fillDecks() bool {
	moved := false
	for _, pos := range model.Decks {
		if !c.decks[pos].IsEmpty() {
			continue
		}
		t, ok := c.queue.PopFront()
		if !ok {
			break
		}
		c.loadDeck(pos, t)
		moved = true
		logger.Debug("deck filled from queue",
			logger.String("deck", string(pos)),
			logger.String("trackId", t.ID))
	}
	return moved
}

func (c *Coordinator) handleEvent(e deck.Event) {
	d, ok := c.decks[e.DeckPosition()]
	if !ok {
		return
	}
	switch ev := e.(type) {
	case deck.Progress:
		if d.ApplyProgress(ev) {
			c.changed()
		}
	case deck.MetadataLoaded:
		if d.ApplyMetadata(ev) {
			id := d.Track().ID
			c.updateLibrary(id, func(t *model.Track) { t.Duration = ev.Duration })
			c.changed()
		}
	case deck.Ended:
		if d.Current(ev) {
			c.trackEnded(ev.DeckPosition())
			c.changed()
		}
	}
}

// trackEnded 结束的曲目进入历史，队首接替
func (c *Coordinator) trackEnded(pos model.DeckPosition) {
	t, _, ok := c.decks[pos].Finish()
	if !ok {
		return
	}
	c.registry.Release(t.ID)
	c.queue.Remove(t.ID)
	c.history.Push(t)
	logger.Info("track ended",
		logger.String("deck", string(pos)),
		logger.String("trackId", t.ID),
		logger.String("title", t.Title))

	if next, ok := c.queue.PopFront(); ok {
		c.loadDeck(pos, next)
		return
	}
	c.recomputeVolumes()
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
