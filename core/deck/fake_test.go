package deck

import (
	"errors"
	"sync"

	"DHX/model"
)

type fakeHandle struct {
	mu       sync.Mutex
	source   string
	playErr  error
	playing  bool
	position float64
	volume   float64
	closed   bool
	seeks    []float64
	cb       Callbacks
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

func (f *fakeHandle) SeekTo(s float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = s
	f.seeks = append(f.seeks, s)
}

func (f *fakeHandle) CurrentTime() float64 { return f.position }
func (f *fakeHandle) Duration() float64    { return 0 }

func (f *fakeHandle) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakeHandle) SetCallbacks(cb Callbacks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

func (f *fakeHandle) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeHandle) callbacks() Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

var errDevice = errors.New("device busy")

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnDeckEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func testTrack(id string) model.Track {
	t := model.NewTrack(id, "Song "+id, "Band", "/uploads/"+id+".mp3")
	t.Duration = 180
	return t
}
