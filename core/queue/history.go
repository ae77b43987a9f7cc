package queue

import (
	"slices"

	"DHX/model"
)

// HistoryLimit 历史记录上限
const HistoryLimit = 5

// History 已播放曲目，最近的在前
type History struct {
	tracks []model.Track
	limit  int
}

func NewHistory() *History {
	return &History{limit: HistoryLimit}
}

// Push 记录为最近一首，去掉旧副本和超出上限的部分
func (h *History) Push(t model.Track) {
	h.Remove(t.ID)
	t.Deck = model.DeckNone
	h.tracks = slices.Insert(h.tracks, 0, t)
	if len(h.tracks) > h.limit {
		h.tracks = h.tracks[:h.limit]
	}
}

func (h *History) Remove(id string) (model.Track, bool) {
	i := h.index(id)
	if i < 0 {
		return model.Track{}, false
	}
	t := h.tracks[i]
	h.tracks = slices.Delete(h.tracks, i, i+1)
	return t, true
}

func (h *History) Get(id string) (model.Track, bool) {
	if i := h.index(id); i >= 0 {
		return h.tracks[i], true
	}
	return model.Track{}, false
}

func (h *History) Contains(id string) bool { return h.index(id) >= 0 }

func (h *History) Len() int { return len(h.tracks) }

// Tracks 返回副本，最近的在前
func (h *History) Tracks() []model.Track { return slices.Clone(h.tracks) }

// Update 修改历史中的曲目
func (h *History) Update(id string, fn func(*model.Track)) bool {
	i := h.index(id)
	if i < 0 {
		return false
	}
	fn(&h.tracks[i])
	return true
}

func (h *History) index(id string) int {
	return slices.IndexFunc(h.tracks, func(t model.Track) bool { return t.ID == id })
}
