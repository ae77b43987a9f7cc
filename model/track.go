package model

// DeckPosition identifies one of the two decks. The zero value means the
// track is not on a deck (it sits in the queue, the history or the library).
type DeckPosition string

const (
	DeckNone  DeckPosition = ""
	DeckLeft  DeckPosition = "left"
	DeckRight DeckPosition = "right"
)

// Decks lists the deck positions in fill order.
var Decks = [...]DeckPosition{DeckLeft, DeckRight}

// Valid reports whether p names an actual deck.
func (p DeckPosition) Valid() bool {
	return p == DeckLeft || p == DeckRight
}

// Other returns the opposite deck.
func (p DeckPosition) Other() DeckPosition {
	switch p {
	case DeckLeft:
		return DeckRight
	case DeckRight:
		return DeckLeft
	}
	return DeckNone
}

// Track sources.
const (
	SourceLocal   = "local"
	SourceSpotify = "spotify"
	SourceYouTube = "youtube"
)

const (
	DefaultBPM    = 120
	DefaultKey    = "C"
	UnknownArtist = "Unknown Artist"
	// PlaceholderTitle is shown on a deck that holds no playable track.
	PlaceholderTitle  = "Load File"
	PlaceholderArtist = "Click to browse"
)

// Track is a playable item moving between the decks, the queue and the history.
type Track struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Artist      string       `json:"artist"`
	Album       string       `json:"album,omitempty"`
	Genre       string       `json:"genre,omitempty"`
	AudioSource string       `json:"audioSource,omitempty"` // empty for a placeholder
	Source      string       `json:"source,omitempty"`      // local, spotify, youtube
	Duration    float64      `json:"duration"`              // seconds
	Position    float64      `json:"currentTime"`           // seconds
	BPM         int          `json:"bpm"`
	Key         string       `json:"key"`
	VolumeScale float64      `json:"volume"`
	Analyzing   bool         `json:"analyzing"`
	Deck        DeckPosition `json:"deckPosition,omitempty"`
	ContentHash string       `json:"-"`
}

// NewTrack builds a track carrying the default analysis values.
func NewTrack(id, title, artist, audioSource string) Track {
	return Track{
		ID:          id,
		Title:       title,
		Artist:      artist,
		AudioSource: audioSource,
		BPM:         DefaultBPM,
		Key:         DefaultKey,
		VolumeScale: 1,
	}
}

// PlaceholderTrack is what an empty deck displays.
func PlaceholderTrack(pos DeckPosition) Track {
	t := NewTrack("empty-"+string(pos), PlaceholderTitle, PlaceholderArtist, "")
	t.Deck = pos
	return t
}

// IsEmpty reports whether the track has nothing to play.
func (t Track) IsEmpty() bool {
	return t.AudioSource == ""
}

// ApplyAnalysis copies an analysis result onto the track and clears the
// analyzing flag.
func (t *Track) ApplyAnalysis(r AnalysisResult) {
	t.BPM = r.BPM
	t.Key = r.Key
	t.Analyzing = false
}
