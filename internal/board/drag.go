package board

// Location addresses a card positionally within a column, matching what a
// drag gesture visually grabbed rather than a card id.
type Location struct {
	Stage Stage
	Index int
}

// DragEvent is a single drag-end gesture. A nil Dest means the drag was
// cancelled or dropped outside any column.
type DragEvent struct {
	Source Location
	Dest   *Location
}

// ApplyDrag translates one drag-end event into at most one card move.
// The source index is resolved against the column as it is now; if the
// column shrank since the drag started (a concurrent run completion can
// remove a card) an out-of-bounds index is a no-op, never an error.
func (s *Store) ApplyDrag(ev DragEvent) bool {
	if ev.Dest == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src := FindColumn(&s.board, ev.Source.Stage)
	if ev.Source.Index < 0 || ev.Source.Index >= len(src.Cards) {
		return false
	}
	id := src.Cards[ev.Source.Index].ID
	return s.moveCardLocked(id, ev.Source.Stage, ev.Dest.Index, ev.Dest.Stage)
}
