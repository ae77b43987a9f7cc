package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPResolverSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resolve", r.URL.Path)
		assert.Equal(t, "daft punk one more time", r.URL.Query().Get("q"))
		w.Write([]byte(`{"url":"http://cdn/x.mp3","title":"One More Time","artist":"Daft Punk","source":"spotify","duration":320}`))
	}))
	defer srv.Close()

	res, err := NewHTTPResolver("remote", srv.URL+"/", 0).Resolve(context.Background(), "daft punk one more time")
	require.NoError(t, err)
	assert.Equal(t, &Resolution{URL: "http://cdn/x.mp3", Title: "One More Time", Artist: "Daft Punk", Source: "spotify", Duration: 320}, res)
}

func TestHTTPResolverFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) { http.Error(w, "nope", http.StatusBadGateway) },
		"json":   func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("{")) },
		"source": func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"url":"u","source":"tape"}`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := NewHTTPResolver("remote", srv.URL, 0).Resolve(context.Background(), "q")
			var re *ResolutionError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "q", re.Query)
		})
	}
}

func TestHTTPResolverDefaultsSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"http://cdn/y.mp3","title":"Y"}`))
	}))
	defer srv.Close()

	res, err := NewHTTPResolver("remote", srv.URL, 0).Resolve(context.Background(), "y")
	require.NoError(t, err)
	assert.Equal(t, "youtube", res.Source)
}

type stubResolver struct {
	name string
	res  *Resolution
	err  error
}

func (s stubResolver) Name() string { return s.name }
func (s stubResolver) Resolve(ctx context.Context, q string) (*Resolution, error) {
	return s.res, s.err
}

func TestManagerDefaultAndFill(t *testing.T) {
	m := NewManager()
	_, err := m.Resolve(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoResolver)

	m.Register(stubResolver{name: "a", res: &Resolution{URL: "u", Title: "Massive Attack - Teardrop", Source: "youtube"}})
	m.Register(stubResolver{name: "b", err: errors.New("down")})
	assert.Equal(t, "a", m.Default().Name())

	res, err := m.Resolve(context.Background(), "teardrop")
	require.NoError(t, err)
	assert.Equal(t, "Massive Attack", res.Artist)

	require.NoError(t, m.SetDefault("b"))
	_, err = m.Resolve(context.Background(), "teardrop")
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "teardrop", re.Query)

	assert.Error(t, m.SetDefault("zzz"))
	assert.Nil(t, m.Get("zzz"))
}

func TestManagerRejectsEmptyURL(t *testing.T) {
	m := NewManager()
	m.Register(stubResolver{name: "a", res: &Resolution{Title: "t"}})
	_, err := m.Resolve(context.Background(), "q")
	assert.Error(t, err)
}

func TestExtractArtist(t *testing.T) {
	cases := map[string]string{
		"Daft Punk - One More Time (Official Video)":  "Daft Punk",
		"Burial | Archangel":                          "Burial",
		"Moderat: Bad Kingdom [Official Music Video]": "Moderat",
		"Four Tet Baby":                               "Four Tet",
		"Aphex Twin Xtal":                             "Aphex Twin",
		"Bonobo Kerala Live":                          "Bonobo Kerala",
		"Solo":                                        "Unknown Artist",
		"Jon Hopkins — Emerald Rush":                  "Jon Hopkins",
	}
	for title, want := range cases {
		assert.Equal(t, want, ExtractArtist(title), title)
	}
}
