package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// NoteID is the identity of a sticky note. It stores the canonical JSON
// literal of the id so that numeric ids (browser clients use Date.now())
// and string ids (uuid) both survive a relay round trip untouched.
type NoteID string

// StringID builds a NoteID from a plain string.
func StringID(s string) NoteID {
	b, _ := json.Marshal(s)
	return NoteID(b)
}

// NumericID builds a NoteID from an integer.
func NumericID(n int64) NoteID {
	return NoteID(strconv.FormatInt(n, 10))
}

// ParseNoteID accepts either a JSON literal or a bare string as typed on a
// command line: `1` is numeric, `abc` becomes the string "abc".
func ParseNoteID(s string) NoteID {
	var id NoteID
	if err := id.UnmarshalJSON([]byte(s)); err == nil {
		return id
	}
	return StringID(s)
}

func (id NoteID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	return []byte(id), nil
}

func (id *NoteID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return fmt.Errorf("invalid note id %q", data)
	}
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid numeric note id %q: %w", data, err)
		}
		*id = NoteID(strconv.FormatFloat(f, 'f', -1, 64))
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*id = NoteID(buf.String())
	}
	return nil
}

// String returns the id for display, without JSON quoting.
func (id NoteID) String() string {
	if len(id) > 0 && id[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(id), &s); err == nil {
			return s
		}
	}
	return string(id)
}

// StickyNote is one movable note on the board.
type StickyNote struct {
	ID    NoteID  `json:"id"`
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
}

// LineSegment is one immutable piece of a freehand stroke.
type LineSegment struct {
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Color string  `json:"color,omitempty"`
}

// Snapshot is the full board state handed to a newly connected client.
type Snapshot struct {
	Notes    []StickyNote  `json:"notes"`
	Drawings []LineSegment `json:"drawings"`
}

// CopyNotes returns a fresh slice so callers can never alias stored state.
// A nil input yields an empty, non-nil slice.
func CopyNotes(notes []StickyNote) []StickyNote {
	out := make([]StickyNote, len(notes))
	copy(out, notes)
	return out
}

// CopySegments is CopyNotes for drawing history.
func CopySegments(segs []LineSegment) []LineSegment {
	out := make([]LineSegment, len(segs))
	copy(out, segs)
	return out
}

// WithoutNote returns notes minus every entry whose id matches.
func WithoutNote(notes []StickyNote, id NoteID) []StickyNote {
	out := make([]StickyNote, 0, len(notes))
	for _, n := range notes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}
