package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"promptboard/internal/board"
	"promptboard/internal/storage"

	tea "github.com/charmbracelet/bubbletea"
)

type fixedCompleter struct {
	text string
	err  error
}

func (f fixedCompleter) Complete(ctx context.Context, model, prompt, credential string) (string, error) {
	return f.text, f.err
}

// testBoardModel builds a model against temp storage with the given To Do
// cards, isolating HOME so user config never leaks in.
func testBoardModel(t *testing.T, todoTitles ...string) (boardModel, *board.Store, *storage.Store) {
	t.Helper()
	tempDir := t.TempDir()

	originalHome := os.Getenv("HOME")
	origKey := os.Getenv("OPENAI_API_KEY")
	t.Cleanup(func() {
		os.Setenv("HOME", originalHome)
		os.Setenv("OPENAI_API_KEY", origKey)
	})
	os.Setenv("HOME", tempDir)
	os.Setenv("OPENAI_API_KEY", "")

	st := storage.New(filepath.Join(tempDir, "data"))
	b := board.NewBoard()
	for _, title := range todoTitles {
		c, err := board.NewCard(title, "prompt for "+title, "gpt-4o-mini")
		if err != nil {
			t.Fatalf("Failed to build card: %v", err)
		}
		board.FindColumn(&b, board.StageTodo).Cards = append(board.FindColumn(&b, board.StageTodo).Cards, c)
	}
	s := board.NewStore(b, st)
	runner := board.NewRunner(s, fixedCompleter{text: "ok"}, st)

	m := initialBoardModel(st, s, runner)
	m.width = 100
	m.height = 30
	return m, s, st
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func applyKey(t *testing.T, m boardModel, r rune) (boardModel, tea.Cmd) {
	t.Helper()
	nm, cmd := m.Update(keyMsg(r))
	bm, ok := nm.(boardModel)
	if !ok {
		t.Fatalf("Update should return a boardModel, got %T", nm)
	}
	return bm, cmd
}

func TestBoardModel_InitialState(t *testing.T) {
	m, _, _ := testBoardModel(t, "first", "second")

	if len(m.columns) != 3 {
		t.Fatalf("Expected 3 columns, got %d", len(m.columns))
	}
	expectedColumns := []string{"To Do", "In Progress", "Done"}
	for i, expected := range expectedColumns {
		if m.columns[i].title != expected {
			t.Errorf("Column %d: expected title %q, got %q", i, expected, m.columns[i].title)
		}
	}
	if len(m.columns[0].cards) != 2 {
		t.Errorf("To Do column should show the seeded cards, got %d", len(m.columns[0].cards))
	}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Init() panicked: %v", r)
		}
	}()
	m.Init()
}

func TestBoardModel_Update_SmokeTest(t *testing.T) {
	testCases := []struct {
		name string
		msg  tea.Msg
	}{
		{"quit key", keyMsg('q')},
		{"help key", keyMsg('?')},
		{"filter key", keyMsg('/')},
		{"new card key", keyMsg('n')},
		{"settings key", keyMsg('s')},
		{"run key", keyMsg('r')},
		{"left arrow", tea.KeyMsg{Type: tea.KeyLeft}},
		{"window resize", tea.WindowSizeMsg{Width: 80, Height: 24}},
		{"run finished", runFinishedMsg{outcome: board.Outcome{CardID: "x"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, _, _ := testBoardModel(t, "card")
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Update panicked on %s: %v", tc.name, r)
				}
			}()
			m.Update(tc.msg)
		})
	}
}

func TestBoardModel_Navigation(t *testing.T) {
	m, _, _ := testBoardModel(t, "a", "b", "c")
	m.selectedCol = 0

	m, _ = applyKey(t, m, 'l')
	if m.selectedCol != 1 {
		t.Errorf("'l' should move to the next column, got %d", m.selectedCol)
	}
	m, _ = applyKey(t, m, 'h')
	if m.selectedCol != 0 {
		t.Errorf("'h' should move back, got %d", m.selectedCol)
	}

	m, _ = applyKey(t, m, 'j')
	if m.columns[0].cursor != 1 {
		t.Errorf("'j' should move the cursor down, got %d", m.columns[0].cursor)
	}
	m, _ = applyKey(t, m, 'k')
	if m.columns[0].cursor != 0 {
		t.Errorf("'k' should move the cursor up, got %d", m.columns[0].cursor)
	}

	// Wrap-around on column navigation
	m.selectedCol = 2
	m, _ = applyKey(t, m, 'l')
	if m.selectedCol != 0 {
		t.Errorf("Column navigation should wrap, got %d", m.selectedCol)
	}
}

func TestBoardModel_MoveCardAcrossColumns(t *testing.T) {
	m, s, _ := testBoardModel(t, "a", "b")
	m.selectedCol = 0
	m.columns[0].cursor = 0

	m, _ = applyKey(t, m, 'L')
	if m.selectedCol != 1 {
		t.Errorf("Selection should follow the moved card, got column %d", m.selectedCol)
	}

	b := s.Board()
	if len(board.FindColumn(&b, board.StageTodo).Cards) != 1 {
		t.Error("Card should have left To Do")
	}
	inProgress := board.FindColumn(&b, board.StageInProgress).Cards
	if len(inProgress) != 1 || inProgress[0].Title != "a" {
		t.Errorf("Card 'a' should be In Progress, got %v", inProgress)
	}

	// H at the leftmost column is a no-op.
	m.selectedCol = 0
	m, _ = applyKey(t, m, 'H')
	if m.selectedCol != 0 {
		t.Error("H at the first column should not move")
	}
}

func TestBoardModel_ReorderWithinColumn(t *testing.T) {
	m, s, _ := testBoardModel(t, "a", "b", "c")
	m.selectedCol = 0
	m.columns[0].cursor = 0

	m, _ = applyKey(t, m, 'J')
	b := s.Board()
	titles := board.FindColumn(&b, board.StageTodo).Cards
	if titles[0].Title != "b" || titles[1].Title != "a" {
		t.Errorf("'J' should swap the card downward, got %v", titles)
	}
	if m.columns[0].cursor != 1 {
		t.Errorf("Cursor should follow the card, got %d", m.columns[0].cursor)
	}

	m, _ = applyKey(t, m, 'K')
	b = s.Board()
	titles = board.FindColumn(&b, board.StageTodo).Cards
	if titles[0].Title != "a" {
		t.Errorf("'K' should swap the card back up, got %v", titles)
	}
}

func TestBoardModel_MutationsBlockedWhileFiltering(t *testing.T) {
	m, s, _ := testBoardModel(t, "alpha", "beta")
	m.filter = "alpha"
	m.syncColumns()

	before := s.Board()
	m, _ = applyKey(t, m, 'L')
	if m.notice == "" {
		t.Error("Moving while filtered should set a notice")
	}
	after := s.Board()
	if len(board.FindColumn(&after, board.StageTodo).Cards) != len(board.FindColumn(&before, board.StageTodo).Cards) {
		t.Error("Moving while filtered must not mutate the board")
	}

	m, _ = applyKey(t, m, 'x')
	if s.Board().CardCount() != 2 {
		t.Error("Deleting while filtered must not mutate the board")
	}
}

func TestBoardModel_FilterNarrowsColumns(t *testing.T) {
	m, _, _ := testBoardModel(t, "write haiku", "draft release notes")

	m.filter = "haiku"
	m.syncColumns()
	if len(m.columns[0].cards) != 1 || m.columns[0].cards[0].Title != "write haiku" {
		t.Errorf("Filter should narrow the To Do column, got %v", m.columns[0].cards)
	}

	m.filter = ""
	m.syncColumns()
	if len(m.columns[0].cards) != 2 {
		t.Error("Clearing the filter should restore all cards")
	}
}

func TestBoardModel_DeleteCard(t *testing.T) {
	m, s, _ := testBoardModel(t, "a", "b")
	m.selectedCol = 0
	m.columns[0].cursor = 1

	m, _ = applyKey(t, m, 'x')
	if s.Board().CardCount() != 1 {
		t.Error("'x' should delete the selected card")
	}
	b := s.Board()
	if board.FindColumn(&b, board.StageTodo).Cards[0].Title != "a" {
		t.Error("The cursor's card should be the one deleted")
	}
}

func TestBoardModel_RunWithoutCredential(t *testing.T) {
	m, s, _ := testBoardModel(t, "a")
	m.selectedCol = 0

	m, _ = applyKey(t, m, 'r')
	if !strings.Contains(m.notice, "API key") {
		t.Errorf("Running without a key should point at settings, got %q", m.notice)
	}

	b := s.Board()
	if len(board.FindColumn(&b, board.StageTodo).Cards) != 1 {
		t.Error("A rejected run must leave the card in To Do")
	}
}

func TestBoardModel_RunMovesCardOptimistically(t *testing.T) {
	m, s, st := testBoardModel(t, "a")
	if err := st.SaveCredential("sk-test"); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}
	m.selectedCol = 0

	m, cmd := applyKey(t, m, 'r')
	if cmd == nil {
		t.Fatal("Starting a run should return a command")
	}

	b := s.Board()
	inProgress := board.FindColumn(&b, board.StageInProgress).Cards
	if len(inProgress) != 1 {
		t.Fatal("Card should move to In Progress before the call resolves")
	}
	if !m.running[inProgress[0].ID] {
		t.Error("Card should be marked as running")
	}
}

func TestBoardModel_RunFinishedMessage(t *testing.T) {
	m, s, _ := testBoardModel(t, "a")
	b := s.Board()
	card := board.FindColumn(&b, board.StageTodo).Cards[0]
	m.running[card.ID] = true

	nm, _ := m.Update(runFinishedMsg{outcome: board.Outcome{CardID: card.ID, Result: "done"}})
	m = nm.(boardModel)
	if m.running[card.ID] {
		t.Error("Finished run should clear the running marker")
	}
	if !strings.Contains(m.notice, "Done") {
		t.Errorf("Successful run should announce completion, got %q", m.notice)
	}

	nm, _ = m.Update(runFinishedMsg{outcome: board.Outcome{CardID: card.ID, Err: errors.New("boom")}})
	m = nm.(boardModel)
	if !strings.Contains(m.notice, "boom") {
		t.Errorf("Failed run should surface the error, got %q", m.notice)
	}
}

func TestBoardModel_CreateCard(t *testing.T) {
	m, s, _ := testBoardModel(t)

	m, _ = applyKey(t, m, 'n')
	if !m.creating {
		t.Fatal("'n' should open the create form")
	}

	m.titleInput.SetValue("new card")
	m.promptInput.SetValue("do the thing")
	nm, _ := m.submitCreate()
	m = nm.(boardModel)

	if m.creating {
		t.Error("Submitting should close the form")
	}
	b := s.Board()
	todo := board.FindColumn(&b, board.StageTodo).Cards
	if len(todo) != 1 || todo[0].Title != "new card" {
		t.Errorf("Created card should land in To Do, got %v", todo)
	}
}

func TestBoardModel_CreateCardRejectsEmpty(t *testing.T) {
	m, s, _ := testBoardModel(t)

	m, _ = applyKey(t, m, 'n')
	m.titleInput.SetValue("   ")
	m.promptInput.SetValue("p")
	nm, _ := m.submitCreate()
	m = nm.(boardModel)

	if s.Board().CardCount() != 0 {
		t.Error("Blank title must not create a card")
	}
	if m.notice == "" {
		t.Error("Rejection should explain itself in a notice")
	}
}

func TestBoardModel_SettingsSavesCredential(t *testing.T) {
	m, _, st := testBoardModel(t)

	m, _ = applyKey(t, m, 's')
	if !m.editingKey {
		t.Fatal("'s' should open the settings form")
	}

	m.keyInput.SetValue("sk-new-key")
	nm, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = nm.(boardModel)

	if m.editingKey {
		t.Error("Enter should close the settings form")
	}
	key, ok := st.LoadCredential()
	if !ok || key != "sk-new-key" {
		t.Errorf("Credential should be stored, got %q (ok=%v)", key, ok)
	}
}

func TestBoardModel_View_SmokeTest(t *testing.T) {
	m, _, _ := testBoardModel(t, "visible card")

	view := m.View()
	if view == "" {
		t.Fatal("View should render something")
	}
	for _, want := range []string{"To Do", "In Progress", "Done", "visible card"} {
		if !strings.Contains(view, want) {
			t.Errorf("View should contain %q", want)
		}
	}

	// Overlay states must render without panicking.
	m.showingHelp = true
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("Help overlay should render its title")
	}
	m.showingHelp = false

	m.creating = true
	if !strings.Contains(m.View(), "New Card") {
		t.Error("Create form should render its title")
	}
	m.creating = false

	m.editingKey = true
	if !strings.Contains(m.View(), "API Key") {
		t.Error("Settings form should render its title")
	}
}

func TestBoardModel_PreviewOverlay(t *testing.T) {
	m, s, _ := testBoardModel(t, "haiku")
	b := s.Board()
	card := board.FindColumn(&b, board.StageTodo).Cards[0]

	m, _ = applyKey(t, m, 'p')
	if !m.previewing {
		t.Fatal("'p' should open the preview")
	}
	if m.previewCard.ID != card.ID {
		t.Error("Preview should show the selected card")
	}
	if !strings.Contains(m.View(), "haiku") {
		t.Error("Preview should render the card title")
	}

	nm, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = nm.(boardModel)
	if m.previewing {
		t.Error("Esc should close the preview")
	}
}

func TestClip(t *testing.T) {
	if got := clip("hello", 10); got != "hello" {
		t.Errorf("Short strings pass through, got %q", got)
	}
	if got := clip("hello world", 8); got != "hello..." {
		t.Errorf("Long strings get an ellipsis, got %q", got)
	}
	if got := clip("hello", 2); got != "he" {
		t.Errorf("Tiny widths hard-truncate, got %q", got)
	}
	if got := clip("hello", 0); got != "hello" {
		t.Errorf("Non-positive width passes through, got %q", got)
	}
}
