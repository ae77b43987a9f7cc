package mixer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"DHX/core/deck"
	"DHX/model"

	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu      sync.Mutex
	source  string
	playErr error
	playing bool
	volume  float64
	closed  bool
	cb      deck.Callbacks
}

func (f *fakeHandle) Load(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = source
}

func (f *fakeHandle) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeHandle) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeHandle) SeekTo(float64)       {}
func (f *fakeHandle) CurrentTime() float64 { return 0 }
func (f *fakeHandle) Duration() float64    { return 0 }

func (f *fakeHandle) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakeHandle) SetCallbacks(cb deck.Callbacks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeHandle) callbacks() deck.Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *fakeHandle) isPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeHandle) currentVolume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakeHandle) end() {
	if cb := f.callbacks(); cb.OnEnded != nil {
		cb.OnEnded()
	}
}

func (f *fakeHandle) progress(cur, dur float64) {
	if cb := f.callbacks(); cb.OnProgress != nil {
		cb.OnProgress(cur, dur)
	}
}

func (f *fakeHandle) metadata(dur float64) {
	if cb := f.callbacks(); cb.OnLoadedMetadata != nil {
		cb.OnLoadedMetadata(dur)
	}
}

type harness struct {
	t       *testing.T
	c       *Coordinator
	mu      sync.Mutex
	handles map[string]*fakeHandle
	failing map[string]bool
}

func newHarness(t *testing.T, cfg Config, opts ...Option) *harness {
	t.Helper()
	h := &harness{t: t, handles: map[string]*fakeHandle{}, failing: map[string]bool{}}
	if cfg.ConfirmTick == 0 {
		cfg.ConfirmTick = time.Hour
	}
	n := 0
	opts = append([]Option{WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("req%d", n)
	})}, opts...)
	h.c = New(cfg, h.factory, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go h.c.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.c.Done()
	})
	return h
}

func defaultHarness(t *testing.T, opts ...Option) *harness {
	cfg := DefaultConfig()
	cfg.ConfirmTick = time.Hour
	return newHarness(t, cfg, opts...)
}

func (h *harness) factory(t model.Track) deck.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := &fakeHandle{}
	if h.failing[t.ID] {
		f.playErr = fmt.Errorf("cannot start %s", t.ID)
	}
	h.handles[t.ID] = f
	return f
}

func (h *harness) handle(id string) *fakeHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.handles[id]
	require.True(h.t, ok, "no handle for %s", id)
	return f
}

func (h *harness) snap() model.Snapshot {
	h.t.Helper()
	s, err := h.c.Snapshot()
	require.NoError(h.t, err)
	return s
}

func (h *harness) eventually(cond func(model.Snapshot) bool) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return cond(h.snap()) }, 2*time.Second, 5*time.Millisecond)
}

func track(id string) model.Track {
	t := model.NewTrack(id, "Song "+id, "Band", "/uploads/"+id+".mp3")
	t.Duration = 200
	return t
}

func tracks(ids ...string) []model.Track {
	out := make([]model.Track, len(ids))
	for i, id := range ids {
		out[i] = track(id)
	}
	return out
}

func ids(ts []model.Track) []string {
	out := []string{}
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func deckID(d model.DeckSnapshot) string {
	if d.State == model.DeckEmpty {
		return ""
	}
	return d.Track.ID
}

// requireUnique checks that no id appears in more than one container.
func requireUnique(t *testing.T, s model.Snapshot) {
	t.Helper()
	seen := map[string]string{}
	add := func(id, where string) {
		if prev, dup := seen[id]; dup {
			t.Fatalf("track %s in both %s and %s", id, prev, where)
		}
		seen[id] = where
	}
	if id := deckID(s.Left); id != "" {
		add(id, "left")
	}
	if id := deckID(s.Right); id != "" {
		add(id, "right")
	}
	for _, tr := range s.Queue {
		add(tr.ID, "queue")
		require.Equal(t, model.DeckNone, tr.Deck)
	}
	for _, tr := range s.History {
		add(tr.ID, "history")
	}
}

func intp(i int) *int { return &i }
