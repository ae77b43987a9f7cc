package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"DHX/core/analysis"
	"DHX/model"
	"DHX/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileName(t *testing.T) {
	cases := []struct {
		name, artist, title string
	}{
		{"Daft Punk - One More Time.mp3", "Daft Punk", "One More Time"},
		{"Daft Punk - One More Time.MP3", "Daft Punk", "One More Time"},
		{"A - B - C.mp3", "A", "B"},
		{"Untitled.mp3", model.UnknownArtist, "Untitled"},
		{"no-spaces-dash.mp3", model.UnknownArtist, "no-spaces-dash"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			artist, title := ParseFileName(tc.name)
			assert.Equal(t, tc.artist, artist)
			assert.Equal(t, tc.title, title)
		})
	}
}

func TestIsMP3(t *testing.T) {
	assert.True(t, IsMP3("x.bin", "audio/mpeg"))
	assert.True(t, IsMP3("x.bin", "audio/mp3"))
	assert.True(t, IsMP3("Track.Mp3", ""))
	assert.False(t, IsMP3("song.wav", "audio/wav"))
	assert.False(t, IsMP3("notes.txt", ""))
}

type stubAnalyzer struct {
	mu    sync.Mutex
	calls int
	res   model.AnalysisResult
	err   error
}

func (s *stubAnalyzer) AnalyzeFile(ctx context.Context, data []byte) (model.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.res, s.err
}

type memRecorder struct {
	recs []*model.TrackAnalysis
}

func (m *memRecorder) Upsert(ctx context.Context, rec *model.TrackAnalysis) error {
	m.recs = append(m.recs, rec)
	return nil
}

func newService(t *testing.T, an Analyzer, opts ...Option) (*Service, *storage.LocalStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	n := 0
	opts = append(opts, WithIDGenerator(func() string {
		n++
		return "id" + string(rune('0'+n))
	}))
	return NewService(store, an, opts...), store
}

func TestIngestAnalysesAndStores(t *testing.T) {
	an := &stubAnalyzer{res: model.AnalysisResult{BPM: 128, Key: "A", Confidence: 0.8}}
	rec := &memRecorder{}
	svc, store := newService(t, an, WithRecorder(rec))

	tracks, err := svc.Ingest(context.Background(), []File{
		{Name: "Daft Punk - One More Time.mp3", ContentType: "audio/mpeg", Data: []byte("audio-1")},
		{Name: "Other.mp3", Data: []byte("audio-2")},
	})
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	first := tracks[0]
	assert.Equal(t, "loaded-id1", first.ID)
	assert.Equal(t, "Daft Punk", first.Artist)
	assert.Equal(t, "One More Time", first.Title)
	assert.Equal(t, 128, first.BPM)
	assert.Equal(t, "A", first.Key)
	assert.False(t, first.Analyzing)
	assert.Equal(t, model.SourceLocal, first.Source)
	assert.Equal(t, analysis.ContentKey([]byte("audio-1")), first.ContentHash)
	assert.True(t, strings.HasPrefix(first.AudioSource, "/uploads/"))
	assert.Equal(t, "loaded-id2", tracks[1].ID)

	objs, err := store.List(context.Background(), storage.UploadPrefix)
	require.NoError(t, err)
	assert.Len(t, objs, 2)

	require.Len(t, rec.recs, 2)
	assert.Equal(t, "A", rec.recs[0].MusicalKey)
	assert.Equal(t, first.ContentHash, rec.recs[0].ContentHash)
}

func TestIngestSkipsNonMP3(t *testing.T) {
	an := &stubAnalyzer{res: model.AnalysisResult{BPM: 100, Key: "D"}}
	svc, _ := newService(t, an)

	tracks, err := svc.Ingest(context.Background(), []File{
		{Name: "cover.png", ContentType: "image/png", Data: []byte("png")},
		{Name: "Song.mp3", Data: []byte("mp3")},
	})
	require.Len(t, tracks, 1)
	assert.Equal(t, "Song", tracks[0].Title)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "cover.png")
	assert.Equal(t, 1, an.calls)
}

func TestIngestDecodeFailureKeepsDefaults(t *testing.T) {
	an := &stubAnalyzer{err: &analysis.DecodeError{Format: "mp3", Err: errors.New("bad frame")}}
	rec := &memRecorder{}
	svc, _ := newService(t, an, WithRecorder(rec))

	tracks, err := svc.Ingest(context.Background(), []File{{Name: "Broken.mp3", Data: []byte("junk")}})
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, model.DefaultBPM, tracks[0].BPM)
	assert.Equal(t, model.DefaultKey, tracks[0].Key)
	assert.False(t, tracks[0].Analyzing)
	assert.Empty(t, rec.recs)
}

func TestWatcherIngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	an := &stubAnalyzer{res: model.AnalysisResult{BPM: 90, Key: "E"}}
	svc, _ := newService(t, an)

	var (
		mu  sync.Mutex
		got []model.Track
	)
	w := NewWatcher(dir, svc, func(tr model.Track) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, tr)
		return nil
	})
	w.SetSettle(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Artist - Tune.mp3"), []byte("mp3"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Tune", got[0].Title)
	assert.Equal(t, "Artist", got[0].Artist)
	assert.Equal(t, 90, got[0].BPM)
}
