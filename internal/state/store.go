package state

import (
	"sync"
)

// Store holds the canonical board: the note list and the drawing history.
// It lives for the lifetime of the process and is never persisted.
//
// The store is safe for concurrent use, but callers that need a mutation
// and the broadcast that follows it to be atomic must serialize around it
// themselves (the relay hub does).
type Store struct {
	notes    []StickyNote
	drawings []LineSegment
	mu       sync.RWMutex
}

// NewStore creates an empty store, optionally seeded with notes.
func NewStore(seed ...StickyNote) *Store {
	return &Store{
		notes:    CopyNotes(seed),
		drawings: make([]LineSegment, 0),
	}
}

// ReplaceNotes overwrites the whole note list. Ids are not checked for
// uniqueness.
func (s *Store) ReplaceNotes(notes []StickyNote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = CopyNotes(notes)
}

// DeleteNote removes every note with the given id and reports how many
// were removed. An unknown id is a no-op.
func (s *Store) DeleteNote(id NoteID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.notes)
	s.notes = WithoutNote(s.notes, id)
	return before - len(s.notes)
}

// AppendDrawing adds one segment to the end of the history.
func (s *Store) AppendDrawing(seg LineSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawings = append(s.drawings, seg)
}

// ClearDrawings truncates the drawing history.
func (s *Store) ClearDrawings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawings = make([]LineSegment, 0)
}

// Notes returns a copy of the current note list.
func (s *Store) Notes() []StickyNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CopyNotes(s.notes)
}

// Snapshot returns copies of the notes and the drawing history.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Notes:    CopyNotes(s.notes),
		Drawings: CopySegments(s.drawings),
	}
}

// DrawingCount returns the length of the drawing history.
func (s *Store) DrawingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drawings)
}
