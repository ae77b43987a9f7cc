package model

// DeckState is the lifecycle state of a deck.
type DeckState string

const (
	DeckEmpty         DeckState = "empty"
	DeckLoadedPaused  DeckState = "paused"
	DeckLoadedPlaying DeckState = "playing"
)

// Progress is the transport position shown by a progress bar.
type Progress struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// DeckSnapshot is a read-only view of one deck.
type DeckSnapshot struct {
	Position DeckPosition `json:"position"`
	State    DeckState    `json:"state"`
	Track    Track        `json:"track"`
	Progress Progress     `json:"progress"`
	Volume   float64      `json:"volume"`
}

// PendingSnapshot describes a track waiting for confirmation.
type PendingSnapshot struct {
	Track     Track `json:"track"`
	Countdown int   `json:"countdown"`
}

// Snapshot is a consistent copy of the whole mixer state.
type Snapshot struct {
	Version      uint64           `json:"version"`
	Left         DeckSnapshot     `json:"left"`
	Right        DeckSnapshot     `json:"right"`
	Queue        []Track          `json:"queue"`
	History      []Track          `json:"history"`
	Library      []Track          `json:"library"`
	CurrentIndex int              `json:"currentIndex"`
	ActiveDeck   DeckPosition     `json:"activeDeck"`
	Crossfader   float64          `json:"crossfader"`
	MasterVolume float64          `json:"masterVolume"`
	Searching    bool             `json:"searching"`
	Pending      *PendingSnapshot `json:"pending,omitempty"`
}

// Deck returns the snapshot of the deck at pos.
func (s *Snapshot) Deck(pos DeckPosition) DeckSnapshot {
	if pos == DeckRight {
		return s.Right
	}
	return s.Left
}
