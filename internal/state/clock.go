package state

import (
	"math/rand"

	"github.com/google/uuid"
)

// NotePalette is the set of colors new notes are picked from.
var NotePalette = []string{"#ffeb3b", "#81d4fa", "#a5d6a7", "#f48fb1", "#ce93d8"}

// NewNoteID returns a fresh, process-unique note id.
func NewNoteID() NoteID {
	return StringID(uuid.NewString())
}

// RandomNote creates a "New Idea" note at a random spot near the top-left
// corner of the board, with a color from NotePalette.
func RandomNote(rng *rand.Rand) StickyNote {
	return StickyNote{
		ID:    NewNoteID(),
		Text:  "New Idea",
		X:     rng.Float64()*200 + 50,
		Y:     rng.Float64()*200 + 50,
		Color: NotePalette[rng.Intn(len(NotePalette))],
	}
}

// WelcomeNote is the note a fresh relay starts with when seeding is enabled.
func WelcomeNote() StickyNote {
	return StickyNote{ID: NumericID(1), Text: "Welcome!", X: 50, Y: 50, Color: "#ffeb3b"}
}
