// Package queue 等待上盘的曲目队列和最近播放历史
// 均非并发安全，由混音器统一串行访问
package queue

import (
	"slices"

	"DHX/model"
)

// Queue 曲目 ID 唯一的有序播放队列
type Queue struct {
	tracks []model.Track
}

func New(tracks ...model.Track) *Queue {
	q := &Queue{}
	for _, t := range tracks {
		q.Append(t)
	}
	return q
}

func (q *Queue) Len() int { return len(q.tracks) }

// Tracks 按播放顺序返回副本
func (q *Queue) Tracks() []model.Track {
	return slices.Clone(q.tracks)
}

// IDs 按播放顺序返回 ID
func (q *Queue) IDs() []string {
	ids := make([]string, len(q.tracks))
	for i, t := range q.tracks {
		ids[i] = t.ID
	}
	return ids
}

// Index 返回位置，不存在时为 -1
func (q *Queue) Index(id string) int {
	return slices.IndexFunc(q.tracks, func(t model.Track) bool { return t.ID == id })
}

func (q *Queue) Contains(id string) bool { return q.Index(id) >= 0 }

func (q *Queue) Get(id string) (model.Track, bool) {
	if i := q.Index(id); i >= 0 {
		return q.tracks[i], true
	}
	return model.Track{}, false
}

// Append 追加到队尾，已存在时返回 false
func (q *Queue) Append(t model.Track) bool {
	if q.Contains(t.ID) {
		return false
	}
	t.Deck = model.DeckNone
	q.tracks = append(q.tracks, t)
	return true
}

// InsertAt 去掉同 ID 的旧副本后插入 index 处
// index 限制在 [0, Len()]，返回实际位置
func (q *Queue) InsertAt(t model.Track, index int) int {
	if i := q.Index(t.ID); i >= 0 {
		q.tracks = slices.Delete(q.tracks, i, i+1)
	}
	index = clamp(index, 0, len(q.tracks))
	t.Deck = model.DeckNone
	q.tracks = slices.Insert(q.tracks, index, t)
	return index
}

// Remove 删除并返回曲目
func (q *Queue) Remove(id string) (model.Track, bool) {
	i := q.Index(id)
	if i < 0 {
		return model.Track{}, false
	}
	t := q.tracks[i]
	q.tracks = slices.Delete(q.tracks, i, i+1)
	return t, true
}

// MoveTo 移动到 newIndex；不存在或位置未变时返回 false
func (q *Queue) MoveTo(id string, newIndex int) bool {
	i := q.Index(id)
	if i < 0 {
		return false
	}
	newIndex = clamp(newIndex, 0, len(q.tracks)-1)
	if newIndex == i {
		return false
	}
	t := q.tracks[i]
	q.tracks = slices.Delete(q.tracks, i, i+1)
	q.tracks = slices.Insert(q.tracks, newIndex, t)
	return true
}

// PopFront 取出队首
func (q *Queue) PopFront() (model.Track, bool) {
	if len(q.tracks) == 0 {
		return model.Track{}, false
	}
	t := q.tracks[0]
	q.tracks = slices.Delete(q.tracks, 0, 1)
	return t, true
}

// Update 修改队列中的曲目
func (q *Queue) Update(id string, fn func(*model.Track)) bool {
	i := q.Index(id)
	if i < 0 {
		return false
	}
	fn(&q.tracks[i])
	q.tracks[i].Deck = model.DeckNone
	return true
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
