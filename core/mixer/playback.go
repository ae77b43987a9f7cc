package mixer

import (
	"DHX/logger"
	"DHX/model"
)

// Play 播放
func (c *Coordinator) Play(pos model.DeckPosition) error {
	return c.withDeck(pos, func() { c.decks[pos].Play() })
}

// Pause 暂停
func (c *Coordinator) Pause(pos model.DeckPosition) error {
	return c.withDeck(pos, func() { c.decks[pos].Pause() })
}

// Toggle 切换播放/暂停
func (c *Coordinator) Toggle(pos model.DeckPosition) error {
	return c.withDeck(pos, func() { c.decks[pos].Toggle() })
}

// SetActiveDeck 设置 NextTrack/PrevTrack 使用的唱盘
func (c *Coordinator) SetActiveDeck(pos model.DeckPosition) error {
	return c.withDeck(pos, func() { c.activeDeck = pos })
}

func (c *Coordinator) withDeck(pos model.DeckPosition, fn func()) error {
	if !pos.Valid() {
		return ErrInvalidDeck
	}
	return c.do(func() {
		fn()
		c.changed()
	})
}

// FillDecks 把队首装入空唱盘
func (c *Coordinator) FillDecks() error {
	return c.do(func() {
		if c.fillDecks() {
			c.changed()
		}
	})
}

// ReturnToQueue 卸载唱盘并把曲目放回队列 index 处
// index 为 nil 或越界时追加，唱盘保持为空
func (c *Coordinator) ReturnToQueue(pos model.DeckPosition, index *int) error {
	if !pos.Valid() {
		return ErrInvalidDeck
	}
	return c.do(func() {
		if c.returnToQueue(pos, index) {
			c.changed()
		}
	})
}

func (c *Coordinator) returnToQueue(pos model.DeckPosition, index *int) bool {
	t, ok := c.unloadDeck(pos)
	if !ok {
		return false
	}
	c.history.Remove(t.ID)
	if index == nil || *index < 0 || *index > c.queue.Len() {
		c.queue.Remove(t.ID)
		c.queue.Append(t)
	} else {
		c.queue.InsertAt(t, *index)
	}
	logger.Debug("track returned to queue",
		logger.String("deck", string(pos)),
		logger.String("trackId", t.ID))
	return true
}

// LoadOnDeck 用队列、历史或曲库中的曲目替换唱盘上的曲目
func (c *Coordinator) LoadOnDeck(pos model.DeckPosition, id string) error {
	if !pos.Valid() {
		return ErrInvalidDeck
	}
	return c.doErr(func() error {
		if err := c.placeOnDeck(pos, id); err != nil {
			return err
		}
		c.changed()
		return nil
	})
}

func (c *Coordinator) placeOnDeck(pos model.DeckPosition, id string) error {
	if holder, ok := c.deckHolding(id); ok {
		if holder == pos {
			return nil
		}
		return ErrTrackOnDeck
	}
	t, ok := c.takeTrack(id)
	if !ok {
		return ErrUnknownTrack
	}
	c.loadDeck(pos, t)
	return nil
}

// takeTrack 从队列或历史中取出曲目，找不到时使用曲库副本
func (c *Coordinator) takeTrack(id string) (model.Track, bool) {
	if t, ok := c.queue.Remove(id); ok {
		return t, true
	}
	if t, ok := c.history.Remove(id); ok {
		return t, true
	}
	return c.libraryTrack(id)
}
