package board

import (
	"sync"

	"promptboard/internal/logger"
)

// Saver receives a snapshot of the board after every successful mutation.
// Implementations must not retain the snapshot's slices.
type Saver interface {
	SaveBoard(Board) error
}

// Store holds the current board and is its sole writer. A mutex makes each
// operation a single atomic transition, so overlapping logical operations
// (a drag gesture and an in-flight run, or two runs) can only interleave
// between operations, never inside one.
type Store struct {
	mu    sync.Mutex
	board Board
	saver Saver
}

// NewStore wraps an initial board value. saver may be nil (no persistence,
// e.g. in tests).
func NewStore(b Board, saver Saver) *Store {
	return &Store{board: b.Clone(), saver: saver}
}

// Board returns a deep copy of the current state for rendering.
func (s *Store) Board() Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.board.Clone()
}

// FindCard locates a card by id.
func (s *Store) FindCard(id string) (Card, Stage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, stage, _, ok := s.board.FindCard(id)
	return c, stage, ok
}

// AddCard appends a card at the end of the given stage's column. The stage
// must exist; passing an unknown stage panics via FindColumn.
func (s *Store) AddCard(stage Stage, c Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := FindColumn(&s.board, stage)
	col.Cards = append(col.Cards, c)
	s.persistLocked()
}

// RemoveCard removes the card from whichever column holds it. A missing id
// is a benign no-op reported as false; concurrent operations may race to
// remove the same card, so this must never be an error.
func (s *Store) RemoveCard(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.board.Columns {
		col := &s.board.Columns[i]
		for j, c := range col.Cards {
			if c.ID == id {
				col.Cards = append(col.Cards[:j], col.Cards[j+1:]...)
				s.persistLocked()
				return true
			}
		}
	}
	return false
}

// MoveCard removes the card from the claimed source column and inserts it
// into the destination column at toIndex, clamped to [0, len(dest)]. If the
// card is not currently in the source column the board is left untouched
// and false is returned; the operation never inserts a duplicate.
func (s *Store) MoveCard(id string, from Stage, toIndex int, to Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveCardLocked(id, from, toIndex, to)
}

func (s *Store) moveCardLocked(id string, from Stage, toIndex int, to Stage) bool {
	src := FindColumn(&s.board, from)
	pos := -1
	for i, c := range src.Cards {
		if c.ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}
	card := src.Cards[pos]
	src.Cards = append(src.Cards[:pos], src.Cards[pos+1:]...)

	dst := FindColumn(&s.board, to)
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > len(dst.Cards) {
		toIndex = len(dst.Cards)
	}
	dst.Cards = append(dst.Cards, Card{})
	copy(dst.Cards[toIndex+1:], dst.Cards[toIndex:])
	dst.Cards[toIndex] = card
	s.persistLocked()
	return true
}

// MoveCardToStage moves the card from wherever it currently lives to the
// end of the given stage. Used by run completion, which must apply its
// transition by id even if the card was dragged elsewhere mid-flight. A
// card already in the target stage keeps its position.
func (s *Store) MoveCardToStage(id string, to Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, cur, _, ok := s.board.FindCard(id)
	if !ok {
		return false
	}
	if cur == to {
		return true
	}
	return s.moveCardLocked(id, cur, len(FindColumn(&s.board, to).Cards), to)
}

// SetCardResult sets the result on the identified card wherever it
// currently resides. A concurrently removed card is a no-op.
func (s *Store) SetCardResult(id, result string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.board.Columns {
		col := &s.board.Columns[i]
		for j := range col.Cards {
			if col.Cards[j].ID == id {
				col.Cards[j].Result = result
				s.persistLocked()
				return true
			}
		}
	}
	return false
}

// persistLocked writes through the saver. Losing persistence is non-fatal
// to the session, so failures are logged and swallowed.
func (s *Store) persistLocked() {
	if s.saver == nil {
		return
	}
	if err := s.saver.SaveBoard(s.board.Clone()); err != nil {
		logger.Storage("board save failed: %v", err)
	}
}
