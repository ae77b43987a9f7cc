package mixer

import (
	"slices"

	"DHX/logger"
	"DHX/model"
)

func (c *Coordinator) libraryIndex(id string) int {
	return slices.IndexFunc(c.library, func(t model.Track) bool { return t.ID == id })
}

func (c *Coordinator) libraryTrack(id string) (model.Track, bool) {
	if i := c.libraryIndex(id); i >= 0 {
		return c.library[i], true
	}
	return model.Track{}, false
}

// addToLibrary 记录曲目，返回是否为新曲目
func (c *Coordinator) addToLibrary(t model.Track) bool {
	if c.libraryIndex(t.ID) >= 0 {
		return false
	}
	t.Deck = model.DeckNone
	t.Position = 0
	c.library = append(c.library, t)
	return true
}

func (c *Coordinator) updateLibrary(id string, fn func(*model.Track)) {
	if i := c.libraryIndex(id); i >= 0 {
		fn(&c.library[i])
	}
}

// Library 本次会话装载过的全部曲目，按加入顺序
func (c *Coordinator) Library() ([]model.Track, error) {
	var out []model.Track
	err := c.do(func() { out = slices.Clone(c.library) })
	return out, err
}

// LoadFiles 接收新导入的曲目
// 全部加入曲库和队列，第一首直接放到 pos 并成为当前位置，然后填充空唱盘
func (c *Coordinator) LoadFiles(pos model.DeckPosition, tracks []model.Track) error {
	if pos != model.DeckNone && !pos.Valid() {
		return ErrInvalidDeck
	}
	if len(tracks) == 0 {
		return nil
	}
	return c.do(func() {
		first := len(c.library)
		for _, t := range tracks {
			if !c.addToLibrary(t) {
				continue
			}
			c.enqueue(t)
		}
		if pos.Valid() {
			head := tracks[0]
			if _, onDeck := c.deckHolding(head.ID); !onDeck {
				if t, ok := c.queue.Remove(head.ID); ok {
					c.loadDeck(pos, t)
				}
			}
			c.currentIndex = min(first, max(len(c.library)-1, 0))
		}
		c.fillDecks()
		c.changed()
		logger.Info("files loaded",
			logger.String("deck", string(pos)),
			logger.Int("count", len(tracks)))
	})
}

// ApplyAnalysis 将分析结果写入该曲目的所有副本
func (c *Coordinator) ApplyAnalysis(id string, res model.AnalysisResult) error {
	return c.do(func() { c.applyAnalysis(id, res) })
}

func (c *Coordinator) applyAnalysis(id string, res model.AnalysisResult) {
	patch := func(t *model.Track) { t.ApplyAnalysis(res) }
	c.updateLibrary(id, patch)
	c.queue.Update(id, patch)
	c.history.Update(id, patch)
	for _, pos := range model.Decks {
		if c.decks[pos].Holds(id) {
			c.decks[pos].UpdateTrack(patch)
		}
	}
	if c.pending != nil && c.pending.track.ID == id {
		patch(&c.pending.track)
	}
	logger.Info("analysis applied",
		logger.String("trackId", id),
		logger.Int("bpm", res.BPM),
		logger.String("key", res.Key))
	c.changed()
}

// NextTrack 将曲库下一首装到当前唱盘
func (c *Coordinator) NextTrack() error {
	return c.do(func() { c.stepTrack(1) })
}

// PrevTrack 将曲库上一首装到当前唱盘
func (c *Coordinator) PrevTrack() error {
	return c.do(func() { c.stepTrack(-1) })
}

// stepTrack 循环移动播放位置，跳过另一唱盘上的曲目；新曲目暂停
func (c *Coordinator) stepTrack(dir int) {
	n := len(c.library)
	if n == 0 {
		return
	}
	active := c.activeDeck
	other := active.Other()
	idx := c.currentIndex
	for range n {
		idx = ((idx+dir)%n + n) % n
		candidate := c.library[idx]
		if c.decks[other].Holds(candidate.ID) {
			continue
		}
		c.currentIndex = idx
		if c.decks[active].Holds(candidate.ID) {
			c.decks[active].Stop()
			c.changed()
			return
		}
		t, _ := c.takeTrack(candidate.ID)
		c.loadDeck(active, t)
		c.changed()
		return
	}
}
