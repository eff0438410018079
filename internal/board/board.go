package board

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Stage identifies one of the three fixed board columns.
type Stage string

const (
	StageTodo       Stage = "todo"
	StageInProgress Stage = "inprogress"
	StageDone       Stage = "done"
)

// Stages lists every stage in display order. The set is fixed and closed;
// code may assume a lookup against it cannot fail for a valid Stage.
var Stages = []Stage{StageTodo, StageInProgress, StageDone}

// DisplayTitle returns the column heading shown for a stage.
func (s Stage) DisplayTitle() string {
	switch s {
	case StageTodo:
		return "To Do"
	case StageInProgress:
		return "In Progress"
	case StageDone:
		return "Done"
	}
	return string(s)
}

// Card is a single prompt card. Result is set only after a successful run.
type Card struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	Result string `json:"result,omitempty"`
}

// NewCard builds a card with a fresh random id. Title and prompt must be
// non-empty after trimming; model is free text.
func NewCard(title, prompt, model string) (Card, error) {
	title = strings.TrimSpace(title)
	prompt = strings.TrimSpace(prompt)
	if title == "" {
		return Card{}, fmt.Errorf("card title must not be empty")
	}
	if prompt == "" {
		return Card{}, fmt.Errorf("card prompt must not be empty")
	}
	return Card{
		ID:     uuid.NewString(),
		Title:  title,
		Prompt: prompt,
		Model:  model,
	}, nil
}

// Column owns the ordered cards of one stage. Order is display and
// execution order, not a set.
type Column struct {
	ID    Stage  `json:"id"`
	Title string `json:"title"`
	Cards []Card `json:"cards"`
}

// Board is the full ordered set of columns and the unit of persistence.
type Board struct {
	Columns []Column
}

// NewBoard returns the default empty board with the three fixed columns.
func NewBoard() Board {
	cols := make([]Column, 0, len(Stages))
	for _, s := range Stages {
		cols = append(cols, Column{ID: s, Title: s.DisplayTitle(), Cards: []Card{}})
	}
	return Board{Columns: cols}
}

// Clone returns a deep copy; mutations on the copy never alias the original.
func (b Board) Clone() Board {
	out := Board{Columns: make([]Column, len(b.Columns))}
	for i, col := range b.Columns {
		cards := make([]Card, len(col.Cards))
		copy(cards, col.Cards)
		out.Columns[i] = Column{ID: col.ID, Title: col.Title, Cards: cards}
	}
	return out
}

// Valid reports whether the board carries exactly the fixed stages in
// display order. Used by the persistence loader to reject incompatible
// snapshots.
func (b Board) Valid() bool {
	if len(b.Columns) != len(Stages) {
		return false
	}
	for i, s := range Stages {
		if b.Columns[i].ID != s {
			return false
		}
	}
	return true
}

// CardCount returns the total number of cards across all columns.
func (b Board) CardCount() int {
	n := 0
	for _, col := range b.Columns {
		n += len(col.Cards)
	}
	return n
}

// FindColumn returns the column for a stage. An unknown stage is a
// programming error since the stage set is closed, so it panics rather
// than returning a recoverable condition.
func FindColumn(b *Board, stage Stage) *Column {
	for i := range b.Columns {
		if b.Columns[i].ID == stage {
			return &b.Columns[i]
		}
	}
	panic(fmt.Sprintf("board: unknown stage %q", stage))
}

// FindCard locates a card by id, returning its value, stage, and position.
func (b Board) FindCard(id string) (Card, Stage, int, bool) {
	for _, col := range b.Columns {
		for i, c := range col.Cards {
			if c.ID == id {
				return c, col.ID, i, true
			}
		}
	}
	return Card{}, "", 0, false
}

// Conserved checks the card-conservation invariant between two snapshots:
// the total card count is unchanged and every id appears in exactly one
// column afterwards. Useful only for tests.
func Conserved(before, after Board) bool {
	if before.CardCount() != after.CardCount() {
		return false
	}
	return uniqueIDs(after)
}

func uniqueIDs(b Board) bool {
	seen := make(map[string]struct{}, b.CardCount())
	for _, col := range b.Columns {
		for _, c := range col.Cards {
			if _, dup := seen[c.ID]; dup {
				return false
			}
			seen[c.ID] = struct{}{}
		}
	}
	return true
}
