package mixer

import "DHX/model"

// DragSource 拖动来源
type DragSource interface{ dragSource() }

// FromQueue 队列中的曲目
type FromQueue struct{ ID string }

// FromDeck 唱盘上的曲目
type FromDeck struct{ Deck model.DeckPosition }

// FromHistory 历史中的曲目
type FromHistory struct{ ID string }

func (FromQueue) dragSource()   {}
func (FromDeck) dragSource()    {}
func (FromHistory) dragSource() {}

// DropTarget 放置目标
type DropTarget interface{ dropTarget() }

// ToQueue 放入队列 Index 处，nil 表示追加
type ToQueue struct{ Index *int }

// ToDeck 放到唱盘上，替换原曲目
type ToDeck struct{ Deck model.DeckPosition }

func (ToQueue) dropTarget() {}
func (ToDeck) dropTarget()  {}

// Drop 执行拖放
func (c *Coordinator) Drop(src DragSource, dst DropTarget) error {
	return c.doErr(func() error {
		if err := c.drop(src, dst); err != nil {
			return err
		}
		c.changed()
		return nil
	})
}

func (c *Coordinator) drop(src DragSource, dst DropTarget) error {
	switch s := src.(type) {
	case FromQueue:
		if !c.queue.Contains(s.ID) {
			return ErrUnknownTrack
		}
		switch d := dst.(type) {
		case ToQueue:
			index := c.queue.Len() - 1
			if d.Index != nil {
				index = *d.Index
			}
			c.queue.MoveTo(s.ID, index)
			return nil
		case ToDeck:
			if !d.Deck.Valid() {
				return ErrInvalidDeck
			}
			return c.placeOnDeck(d.Deck, s.ID)
		}

	case FromDeck:
		if !s.Deck.Valid() {
			return ErrInvalidDeck
		}
		switch d := dst.(type) {
		case ToQueue:
			c.returnToQueue(s.Deck, d.Index)
			return nil
		case ToDeck:
			if d.Deck == s.Deck {
				return nil
			}
			return ErrUnsupportedDrop
		}

	case FromHistory:
		if !c.history.Contains(s.ID) {
			return ErrUnknownTrack
		}
		switch d := dst.(type) {
		case ToQueue:
			t, _ := c.history.Remove(s.ID)
			if d.Index == nil {
				c.queue.Append(t)
			} else {
				c.queue.InsertAt(t, *d.Index)
			}
			return nil
		case ToDeck:
			if !d.Deck.Valid() {
				return ErrInvalidDeck
			}
			return c.placeOnDeck(d.Deck, s.ID)
		}
	}
	return ErrUnsupportedDrop
}
