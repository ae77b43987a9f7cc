package deck

import "DHX/model"

// Event 播放句柄发出的事件
// Generation 标识产生事件的那次装载，旧装载的事件会被丢弃
type Event interface {
	DeckPosition() model.DeckPosition
	LoadGeneration() uint64
}

type eventHeader struct {
	Deck       model.DeckPosition
	Generation uint64
}

func (h eventHeader) DeckPosition() model.DeckPosition { return h.Deck }
func (h eventHeader) LoadGeneration() uint64           { return h.Generation }

// Ended 曲目播放到结尾时触发一次
type Ended struct {
	eventHeader
}

// Progress 播放进度
type Progress struct {
	eventHeader
	Time     float64
	Duration float64
}

// MetadataLoaded 音源时长已知
type MetadataLoaded struct {
	eventHeader
	Duration float64
}

// Observer 接收唱盘事件，在句柄协程中调用
type Observer interface {
	OnDeckEvent(Event)
}

// ObserverFunc 函数适配 Observer
type ObserverFunc func(Event)

func (f ObserverFunc) OnDeckEvent(e Event) { f(e) }
