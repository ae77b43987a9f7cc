package mixer

import "DHX/model"

// Enqueue 外部曲目（上传、监听目录）加入曲库和队尾，然后填充空唱盘
// 已在唱盘或队列中的曲目保持不动
func (c *Coordinator) Enqueue(t model.Track) error {
	return c.do(func() {
		c.addToLibrary(t)
		c.enqueue(t)
		c.fillDecks()
		c.changed()
	})
}

// EnqueueID 将曲库中已有的曲目加入队列
func (c *Coordinator) EnqueueID(id string) error {
	return c.doErr(func() error {
		t, ok := c.findTrack(id)
		if !ok {
			return ErrUnknownTrack
		}
		c.enqueue(t)
		c.fillDecks()
		c.changed()
		return nil
	})
}

func (c *Coordinator) enqueue(t model.Track) bool {
	if _, onDeck := c.deckHolding(t.ID); onDeck {
		return false
	}
	if c.queue.Contains(t.ID) {
		return false
	}
	if h, ok := c.history.Remove(t.ID); ok {
		t = h
	}
	return c.queue.Append(t)
}

// InsertAt 将曲目插入队列 index 处；唱盘上的曲目会被放回队列
func (c *Coordinator) InsertAt(id string, index int) error {
	return c.doErr(func() error {
		if pos, ok := c.deckHolding(id); ok {
			c.returnToQueue(pos, &index)
			c.changed()
			return nil
		}
		t, ok := c.takeTrack(id)
		if !ok {
			return ErrUnknownTrack
		}
		c.queue.InsertAt(t, index)
		c.changed()
		return nil
	})
}

// Remove 从队列移除
func (c *Coordinator) Remove(id string) error {
	return c.doErr(func() error {
		if _, ok := c.queue.Remove(id); !ok {
			return ErrUnknownTrack
		}
		c.changed()
		return nil
	})
}

// Move 调整队列顺序
func (c *Coordinator) Move(id string, index int) error {
	return c.doErr(func() error {
		if !c.queue.Contains(id) {
			return ErrUnknownTrack
		}
		if c.queue.MoveTo(id, index) {
			c.changed()
		}
		return nil
	})
}

// findTrack 依次在队列、历史、曲库中查找
func (c *Coordinator) findTrack(id string) (model.Track, bool) {
	if t, ok := c.queue.Get(id); ok {
		return t, true
	}
	if t, ok := c.history.Get(id); ok {
		return t, true
	}
	return c.libraryTrack(id)
}
