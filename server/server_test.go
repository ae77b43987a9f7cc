package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"DHX/config"
	"DHX/core/deck"
	"DHX/core/ingest"
	"DHX/core/mixer"
	"DHX/core/resolver"
	"DHX/model"
	"DHX/storage"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeFile(ctx context.Context, data []byte) (model.AnalysisResult, error) {
	return model.AnalysisResult{BPM: 124, Key: "G", Confidence: 0.8}, nil
}

type testEnv struct {
	ts    *httptest.Server
	mixer *mixer.Coordinator
}

func newTestEnv(t *testing.T, secret string, opts ...mixer.Option) *testEnv {
	t.Helper()
	cfg := &config.Config{UploadDir: t.TempDir(), JWTSecret: secret}

	m := mixer.New(mixer.Config{MasterVolume: 0.8, ConfirmSeconds: 5, ConfirmTick: time.Hour},
		deck.ClockFactory(time.Hour, nil), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)

	hub := NewHub()
	go hub.Run()
	require.NoError(t, m.OnChange(hub.Publish))

	store, err := storage.NewLocalStore(cfg.UploadDir)
	require.NoError(t, err)
	api := NewAPIHandler(m, ingest.NewService(store, stubAnalyzer{}), store, nil, secret)
	ts := httptest.NewServer(New(cfg, api, hub).Handler())

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-m.Done()
		hub.Stop()
	})
	return &testEnv{ts: ts, mixer: m}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, header ...string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) upload(t *testing.T, deckPos string, names ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range names {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("data:" + name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(e.ts.URL+"/api/upload?deck="+deckPos, mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) state(t *testing.T) model.Snapshot {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s model.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

func titles(ts []model.Track) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Title)
	}
	return out
}

func TestUploadLoadsDecks(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.upload(t, "left", "A - One.mp3", "B - Two.mp3", "C - Three.mp3")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var up UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&up))
	require.Len(t, up.Tracks, 3)
	assert.Equal(t, 124, up.Tracks[0].BPM)

	s := env.state(t)
	assert.Equal(t, "One", s.Left.Track.Title)
	assert.Equal(t, model.DeckLoadedPaused, s.Left.State)
	assert.Equal(t, "Two", s.Right.Track.Title)
	assert.Equal(t, []string{"Three"}, titles(s.Queue))
	assert.Len(t, s.Library, 3)

	media := env.do(t, http.MethodGet, s.Left.Track.AudioSource, nil)
	require.Equal(t, http.StatusOK, media.StatusCode)
	body, err := io.ReadAll(media.Body)
	require.NoError(t, err)
	assert.Equal(t, "data:A - One.mp3", string(body))
}

func TestUploadRejectsNonMP3(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.upload(t, "left", "cover.png")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.upload(t, "middle", "A - One.mp3")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeckAndQueueRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusOK, env.upload(t, "left", "A - One.mp3", "B - Two.mp3", "C - Three.mp3").StatusCode)

	resp := env.do(t, http.MethodPost, "/api/decks/left/play", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.DeckLoadedPlaying, env.state(t).Left.State)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/decks/middle/play", nil).StatusCode)

	queued := env.state(t).Queue[0].ID
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/queue/nope", nil).StatusCode)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/queue/"+queued, nil).StatusCode)
	assert.Empty(t, env.state(t).Queue)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/queue", map[string]string{"trackId": queued}).StatusCode)
	assert.Equal(t, []string{"Three"}, titles(env.state(t).Queue))

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/decks/right/return", map[string]int{"index": 0}).StatusCode)
	s := env.state(t)
	assert.Equal(t, model.DeckEmpty, s.Right.State)
	assert.Equal(t, []string{"Two", "Three"}, titles(s.Queue))

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/queue/fill", nil).StatusCode)
	assert.Equal(t, "Two", env.state(t).Right.Track.Title)
}

func TestMixerValueRoutes(t *testing.T) {
	env := newTestEnv(t, "")

	resp := env.do(t, http.MethodPost, "/api/mixer/crossfader", map[string]float64{"value": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var s model.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	assert.Equal(t, 0.0, s.Crossfader)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/mixer/master", map[string]string{}).StatusCode)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/mixer/master", map[string]float64{"value": 2}).StatusCode)
	assert.Equal(t, 1.0, env.state(t).MasterVolume)
}

func TestDropRoute(t *testing.T) {
	env := newTestEnv(t, "")
	require.Equal(t, http.StatusOK, env.upload(t, "left", "A - One.mp3", "B - Two.mp3", "C - Three.mp3").StatusCode)

	body := map[string]interface{}{
		"from": map[string]string{"kind": "deck", "deck": "left"},
		"to":   map[string]interface{}{"kind": "queue", "index": 0},
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/drop", body).StatusCode)
	s := env.state(t)
	assert.Equal(t, model.DeckEmpty, s.Left.State)
	assert.Equal(t, []string{"One", "Three"}, titles(s.Queue))

	bad := map[string]interface{}{
		"from": map[string]string{"kind": "sky"},
		"to":   map[string]string{"kind": "queue"},
	}
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/drop", bad).StatusCode)

	unsupported := map[string]interface{}{
		"from": map[string]string{"kind": "deck", "deck": "right"},
		"to":   map[string]string{"kind": "deck", "deck": "left"},
	}
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/drop", unsupported).StatusCode)
}

type fixedResolver struct{ res *resolver.Resolution }

func (f fixedResolver) Resolve(ctx context.Context, query string) (*resolver.Resolution, error) {
	r := *f.res
	return &r, nil
}

func TestRequestRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, http.StatusBadGateway, env.do(t, http.MethodPost, "/api/request", map[string]string{"query": "x"}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/request", map[string]string{}).StatusCode)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/pending/confirm", nil).StatusCode)

	env = newTestEnv(t, "", mixer.WithResolver(fixedResolver{res: &resolver.Resolution{
		URL: "https://cdn.example/t.mp3", Title: "Strobe", Artist: "deadmau5", Source: model.SourceYouTube,
	}}))
	resp := env.do(t, http.MethodPost, "/api/request", map[string]string{"query": "strobe"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tr model.Track
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	assert.True(t, strings.HasPrefix(tr.ID, "ai-"))

	require.NotNil(t, env.state(t).Pending)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/pending/confirm", nil).StatusCode)
	s := env.state(t)
	assert.Nil(t, s.Pending)
	assert.Equal(t, "Strobe", s.Left.Track.Title)
}

func TestTokenProtectsControlRoutes(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/queue/fill", nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized,
		env.do(t, http.MethodPost, "/api/queue/fill", nil, "Authorization", "Bearer garbage").StatusCode)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/state", nil).StatusCode)

	resp := env.do(t, http.MethodPost, "/api/auth/token", map[string]string{"name": "dj"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tok map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))

	assert.Equal(t, http.StatusOK,
		env.do(t, http.MethodPost, "/api/queue/fill", nil, "Authorization", "Bearer "+tok["token"]).StatusCode)
}

func TestTokenRouteDisabledWithoutSecret(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/auth/token", map[string]string{"name": "dj"}).StatusCode)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/queue/fill", nil).StatusCode)
}

func TestWebSocketPushesState(t *testing.T) {
	env := newTestEnv(t, "")

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing}))
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/mixer/crossfader", map[string]float64{"value": 0.25}).StatusCode)

	var gotPong, gotState bool
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for !gotPong || !gotState {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		switch msg.Type {
		case MsgTypePong:
			gotPong = true
		case MsgTypeState:
			var s model.Snapshot
			require.NoError(t, json.Unmarshal(msg.Data, &s))
			if s.Crossfader == 0.25 {
				gotState = true
			}
		}
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).StatusCode)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&resolver.ResolutionError{Query: "q", Err: errors.New("down")}, http.StatusBadGateway},
		{fmt.Errorf("x: %w", ingest.ErrUnsupportedFormat), http.StatusBadRequest},
		{mixer.ErrInvalidDeck, http.StatusBadRequest},
		{mixer.ErrUnknownTrack, http.StatusNotFound},
		{mixer.ErrNoPendingTrack, http.StatusNotFound},
		{mixer.ErrRequestCancelled, http.StatusConflict},
		{mixer.ErrTrackOnDeck, http.StatusConflict},
		{mixer.ErrStopped, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestProbeInput(t *testing.T) {
	cfg := &config.Config{UploadDir: "/srv/up", Addr: ":8080"}

	in, err := probeInput(cfg, "/uploads/x.mp3")
	require.NoError(t, err)
	assert.Equal(t, "/srv/up/x.mp3", in)

	in, err = probeInput(cfg, "/media/uploads/x.mp3")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080/media/uploads/x.mp3", in)

	_, err = probeInput(cfg, "blob:abc")
	assert.Error(t, err)
}
