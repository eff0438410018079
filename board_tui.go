package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"promptboard/internal/board"
	"promptboard/internal/markdown"
	"promptboard/internal/storage"
	"promptboard/internal/usercfg"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type cardColumnView struct {
	stage  board.Stage
	title  string
	cards  []board.Card // current, possibly filtered view
	cursor int
	offset int // top index of the visible window
}

// runFinishedMsg carries the outcome of a completed prompt run back
// into the update loop.
type runFinishedMsg struct {
	outcome board.Outcome
}

// noticeExpiredMsg clears a transient footer notice. The seq guards
// against an old tick clearing a newer notice.
type noticeExpiredMsg struct {
	seq int
}

type boardModel struct {
	store  *board.Store
	st     *storage.Store
	runner *board.Runner

	columns     []cardColumnView
	selectedCol int
	width       int
	height      int

	filtering   bool
	filterInput textinput.Model
	filter      string

	showingHelp bool
	helpOffset  int

	creating    bool
	titleInput  textinput.Model
	promptInput textarea.Model
	createFocus int // 0 title, 1 prompt, 2 model
	models      []string
	modelIdx    int

	editingKey bool
	keyInput   textinput.Model

	previewing    bool
	previewCard   board.Card
	previewOffset int

	running map[string]bool
	spin    spinner.Model

	showModels bool
	notice     string
	noticeSeq  int
	styles     boardStyles
}

// newBoardStyles returns hardcoded dark theme styles
func newBoardStyles() boardStyles {
	return boardStyles{
		header:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		boxStyle:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("240")),
		boxActive:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("10")),
		selected:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")),
		muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		help:        lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		overlay:     lipgloss.NewStyle().Background(lipgloss.Color("235")).Foreground(lipgloss.Color("255")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("99")).Padding(1, 2),
		overlayHead: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		helpKey:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		notice:      lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

type boardStyles struct {
	header      lipgloss.Style
	title       lipgloss.Style
	boxStyle    lipgloss.Style
	boxActive   lipgloss.Style
	selected    lipgloss.Style
	muted       lipgloss.Style
	help        lipgloss.Style
	overlay     lipgloss.Style
	overlayHead lipgloss.Style
	helpKey     lipgloss.Style
	notice      lipgloss.Style
}

func initialBoardModel(st *storage.Store, s *board.Store, runner *board.Runner) boardModel {
	fi := textinput.New()
	fi.Placeholder = "filter..."
	fi.CharLimit = 256

	ti := textinput.New()
	ti.Placeholder = "Card title"
	ti.CharLimit = 200

	pi := textarea.New()
	pi.Placeholder = "Prompt text..."
	pi.CharLimit = 0

	ki := textinput.New()
	ki.Placeholder = "sk-..."
	ki.EchoMode = textinput.EchoPassword
	ki.CharLimit = 256

	styles := newBoardStyles()

	cfg := usercfg.GetRuntimeConfig()
	uiPrefs := usercfg.GetUIPrefs()

	var initialCol int
	if uiPrefs.LastSelectedCol >= 0 && uiPrefs.LastSelectedCol < len(board.Stages) {
		initialCol = uiPrefs.LastSelectedCol
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	m := boardModel{
		store:       s,
		st:          st,
		runner:      runner,
		selectedCol: initialCol,
		filterInput: fi,
		titleInput:  ti,
		promptInput: pi,
		keyInput:    ki,
		models:      cfg.Models,
		running:     make(map[string]bool),
		spin:        sp,
		showModels:  uiPrefs.ShowCardModels,
		styles:      styles,
	}
	for _, stage := range board.Stages {
		m.columns = append(m.columns, cardColumnView{stage: stage, title: stage.DisplayTitle()})
	}
	m.syncColumns()
	return m
}

func (m boardModel) Init() tea.Cmd { return nil }

// syncColumns re-derives the per-column card views from the store
// snapshot, applying the active filter and clamping cursors.
func (m *boardModel) syncColumns() {
	b := m.store.Board()
	for i := range m.columns {
		col := board.FindColumn(&b, m.columns[i].stage)
		m.columns[i].cards = m.filterColumn(col.Cards)
		m.ensureCursorVisible(&m.columns[i])
	}
}

// filterColumn applies a fuzzy text filter, best matches first.
func (m *boardModel) filterColumn(all []board.Card) []board.Card {
	if m.filter == "" {
		return all
	}

	normalizedFilter := usercfg.NormalizeSearchText(m.filter)

	type scoredCard struct {
		card  board.Card
		score int
	}
	var scored []scoredCard
	for _, c := range all {
		titleScore := usercfg.FuzzyScore(normalizedFilter, usercfg.NormalizeSearchText(c.Title))
		promptScore := usercfg.FuzzyScore(normalizedFilter, usercfg.NormalizeSearchText(c.Prompt))
		bestScore := titleScore
		if promptScore > bestScore {
			bestScore = promptScore
		}
		if bestScore >= 0 {
			scored = append(scored, scoredCard{card: c, score: bestScore})
		}
	}
	// Sort by score (highest first)
	for i := 0; i < len(scored)-1; i++ {
		for j := i + 1; j < len(scored); j++ {
			if scored[j].score > scored[i].score {
				scored[i], scored[j] = scored[j], scored[i]
			}
		}
	}
	result := make([]board.Card, len(scored))
	for i, s := range scored {
		result[i] = s.card
	}
	return result
}

func (m *boardModel) setNotice(text string) tea.Cmd {
	m.notice = text
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.promptInput.SetWidth(max(20, m.width/2))
		m.promptInput.SetHeight(max(4, m.height/3))
		for i := range m.columns {
			m.ensureCursorVisible(&m.columns[i])
		}
		return m, nil
	case runFinishedMsg:
		delete(m.running, msg.outcome.CardID)
		m.syncColumns()
		if msg.outcome.Err != nil {
			return m, m.setNotice("Run failed: " + msg.outcome.Err.Error())
		}
		return m, m.setNotice("Run complete — card moved to Done")
	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil
	case spinner.TickMsg:
		if len(m.running) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch {
		case m.showingHelp:
			return m.updateHelp(msg)
		case m.previewing:
			return m.updatePreview(msg)
		case m.creating:
			return m.updateCreate(msg)
		case m.editingKey:
			return m.updateSettings(msg)
		case m.filtering:
			return m.updateFilter(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m boardModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch {
	// Critical actions first to avoid conflicts with navigation keys
	case key == "q" || key == "ctrl+c":
		m.saveUIPreferences()
		return m, tea.Quit
	case key == "?":
		m.showingHelp = true
		m.helpOffset = 0
		return m, nil
	case key == "/":
		m.filtering = true
		m.filterInput.SetValue(m.filter)
		m.filterInput.Focus()
		return m, nil
	case key == "esc":
		if m.filter != "" {
			m.filter = ""
			m.syncColumns()
		}
		return m, nil
	case key == "m":
		m.showModels = !m.showModels
		return m, nil
	case key == "n":
		if m.filter != "" {
			return m, m.setNotice("Clear the filter (esc) before adding cards")
		}
		m.creating = true
		m.createFocus = 0
		m.titleInput.SetValue("")
		m.promptInput.SetValue("")
		m.modelIdx = m.defaultModelIdx()
		m.titleInput.Focus()
		m.promptInput.Blur()
		return m, nil
	case key == "s":
		m.editingKey = true
		m.keyInput.SetValue("")
		m.keyInput.Focus()
		return m, nil
	case key == "p" || key == "enter":
		if card, ok := m.currentCard(); ok {
			m.previewing = true
			m.previewCard = card
			m.previewOffset = 0
		}
		return m, nil
	case key == "d":
		if card, ok := m.currentCard(); ok {
			path, err := exportCard(card, ".", false)
			if err != nil {
				return m, m.setNotice("Export failed: " + err.Error())
			}
			return m, m.setNotice("Wrote " + path)
		}
		return m, nil
	case key == "x":
		if m.filter != "" {
			return m, m.setNotice("Clear the filter (esc) before deleting cards")
		}
		if card, ok := m.currentCard(); ok {
			if m.running[card.ID] {
				return m, m.setNotice("Card is running; wait for it to finish")
			}
			m.store.RemoveCard(card.ID)
			m.syncColumns()
			return m, m.setNotice("Deleted " + card.Title)
		}
		return m, nil
	case key == "r":
		return m.startRun()
	case key == "H" || key == "L":
		return m.moveAcross(key == "L")
	case key == "J" || key == "K":
		return m.reorder(key == "J")
	// Navigation last so action keys don't get shadowed
	case key == "l" || key == "right" || key == "tab":
		m.selectedCol = (m.selectedCol + 1) % len(m.columns)
		m.ensureCursorVisible(&m.columns[m.selectedCol])
	case key == "h" || key == "left" || key == "shift+tab":
		m.selectedCol = (m.selectedCol - 1 + len(m.columns)) % len(m.columns)
		m.ensureCursorVisible(&m.columns[m.selectedCol])
	case key == "j" || key == "down":
		col := &m.columns[m.selectedCol]
		if len(col.cards) > 0 && col.cursor < len(col.cards)-1 {
			col.cursor++
			m.ensureCursorVisible(col)
		}
	case key == "k" || key == "up":
		col := &m.columns[m.selectedCol]
		if len(col.cards) > 0 && col.cursor > 0 {
			col.cursor--
			m.ensureCursorVisible(col)
		}
	}
	return m, nil
}

// startRun moves the selected To Do card into In Progress and kicks
// off the completion call in the background.
func (m boardModel) startRun() (tea.Model, tea.Cmd) {
	if m.filter != "" {
		return m, m.setNotice("Clear the filter (esc) before running cards")
	}
	card, ok := m.currentCard()
	if !ok {
		return m, nil
	}
	if m.columns[m.selectedCol].stage != board.StageTodo {
		return m, m.setNotice("Only To Do cards can be run")
	}
	if m.running[card.ID] {
		return m, nil
	}

	pending, err := m.runner.Start(card.ID)
	if err == board.ErrNoCredential {
		return m, m.setNotice("No API key set — press s to add one")
	}
	if err != nil {
		return m, m.setNotice("Run failed: " + err.Error())
	}

	m.running[card.ID] = true
	m.syncColumns()
	runner := m.runner
	finish := func() tea.Msg {
		return runFinishedMsg{outcome: runner.Finish(context.Background(), pending)}
	}
	return m, tea.Batch(m.spin.Tick, finish)
}

// moveAcross moves the selected card to the adjacent column, keeping
// its position where possible.
func (m boardModel) moveAcross(forward bool) (tea.Model, tea.Cmd) {
	if m.filter != "" {
		return m, m.setNotice("Clear the filter (esc) before moving cards")
	}
	col := &m.columns[m.selectedCol]
	if len(col.cards) == 0 {
		return m, nil
	}
	destCol := m.selectedCol + 1
	if !forward {
		destCol = m.selectedCol - 1
	}
	if destCol < 0 || destCol >= len(m.columns) {
		return m, nil
	}

	ev := board.DragEvent{
		Source: board.Location{Stage: col.stage, Index: col.cursor},
		Dest:   &board.Location{Stage: m.columns[destCol].stage, Index: col.cursor},
	}
	if m.store.ApplyDrag(ev) {
		m.selectedCol = destCol
		m.syncColumns()
		dc := &m.columns[destCol]
		dc.cursor = min(ev.Dest.Index, max(0, len(dc.cards)-1))
		m.ensureCursorVisible(dc)
	}
	return m, nil
}

// reorder swaps the selected card with its neighbor in the same column.
func (m boardModel) reorder(down bool) (tea.Model, tea.Cmd) {
	if m.filter != "" {
		return m, m.setNotice("Clear the filter (esc) before moving cards")
	}
	col := &m.columns[m.selectedCol]
	if len(col.cards) < 2 {
		return m, nil
	}
	dest := col.cursor - 1
	if down {
		dest = col.cursor + 1
	}
	if dest < 0 || dest >= len(col.cards) {
		return m, nil
	}

	ev := board.DragEvent{
		Source: board.Location{Stage: col.stage, Index: col.cursor},
		Dest:   &board.Location{Stage: col.stage, Index: dest},
	}
	if m.store.ApplyDrag(ev) {
		m.syncColumns()
		col.cursor = dest
		m.ensureCursorVisible(col)
	}
	return m, nil
}

func (m boardModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.filtering = false
		m.filter = ""
		m.syncColumns()
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		return m, nil
	default:
		// Live update filter as user types
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.filter = m.filterInput.Value()
		m.syncColumns()
		return m, cmd
	}
}

func (m boardModel) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.creating = false
		return m, nil
	case "tab":
		m.createFocus = (m.createFocus + 1) % 3
		m.applyCreateFocus()
		return m, nil
	case "shift+tab":
		m.createFocus = (m.createFocus + 2) % 3
		m.applyCreateFocus()
		return m, nil
	}

	switch m.createFocus {
	case 0:
		if msg.String() == "enter" {
			m.createFocus = 1
			m.applyCreateFocus()
			return m, nil
		}
		var cmd tea.Cmd
		m.titleInput, cmd = m.titleInput.Update(msg)
		return m, cmd
	case 1:
		var cmd tea.Cmd
		m.promptInput, cmd = m.promptInput.Update(msg)
		return m, cmd
	default:
		switch msg.String() {
		case "left", "h":
			m.modelIdx = (m.modelIdx - 1 + len(m.models)) % len(m.models)
			return m, nil
		case "right", "l":
			m.modelIdx = (m.modelIdx + 1) % len(m.models)
			return m, nil
		case "enter":
			return m.submitCreate()
		}
		return m, nil
	}
}

func (m *boardModel) applyCreateFocus() {
	m.titleInput.Blur()
	m.promptInput.Blur()
	switch m.createFocus {
	case 0:
		m.titleInput.Focus()
	case 1:
		m.promptInput.Focus()
	}
}

func (m boardModel) submitCreate() (tea.Model, tea.Cmd) {
	model := ""
	if len(m.models) > 0 {
		model = m.models[m.modelIdx%len(m.models)]
	}
	card, err := board.NewCard(m.titleInput.Value(), m.promptInput.Value(), model)
	if err != nil {
		return m, m.setNotice(err.Error())
	}
	m.store.AddCard(board.StageTodo, card)
	m.creating = false
	m.selectedCol = 0
	m.syncColumns()
	m.columns[0].cursor = max(0, len(m.columns[0].cards)-1)
	m.ensureCursorVisible(&m.columns[0])
	return m, m.setNotice("Created " + card.Title)
}

func (m boardModel) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.editingKey = false
		return m, nil
	case tea.KeyEnter:
		key := strings.TrimSpace(m.keyInput.Value())
		m.editingKey = false
		if key == "" {
			return m, nil
		}
		if err := m.st.SaveCredential(key); err != nil {
			return m, m.setNotice("Could not save key: " + err.Error())
		}
		return m, m.setNotice("API key saved")
	default:
		var cmd tea.Cmd
		m.keyInput, cmd = m.keyInput.Update(msg)
		return m, cmd
	}
}

func (m boardModel) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lines, _, viewport := m.previewLayout()
	maxOffset := 0
	if viewport < len(lines) {
		maxOffset = len(lines) - viewport
	}
	switch msg.String() {
	case "q", "p", "esc", "enter":
		m.previewing = false
		return m, nil
	case "up", "k":
		if m.previewOffset > 0 {
			m.previewOffset--
		}
	case "down", "j":
		if m.previewOffset < maxOffset {
			m.previewOffset++
		}
	case "pgup":
		m.previewOffset = max(0, m.previewOffset-max(1, viewport-1))
	case "pgdown":
		m.previewOffset = min(maxOffset, m.previewOffset+max(1, viewport-1))
	case "home":
		m.previewOffset = 0
	case "end":
		m.previewOffset = maxOffset
	}
	return m, nil
}

func (m boardModel) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lines, _, viewport := m.helpLayout()
	maxOffset := 0
	if viewport < len(lines) {
		maxOffset = len(lines) - viewport
	}
	switch msg.String() {
	case "q", "?", "esc":
		m.showingHelp = false
	case "up", "k":
		if m.helpOffset > 0 {
			m.helpOffset--
		}
	case "down", "j":
		if m.helpOffset < maxOffset {
			m.helpOffset++
		}
	case "pgup":
		m.helpOffset = max(0, m.helpOffset-max(1, viewport-1))
	case "pgdown":
		m.helpOffset = min(maxOffset, m.helpOffset+max(1, viewport-1))
	case "home":
		m.helpOffset = 0
	case "end":
		m.helpOffset = maxOffset
	}
	return m, nil
}

func (m boardModel) View() string {
	if m.creating {
		return m.viewCreate()
	}
	if m.editingKey {
		return m.viewSettings()
	}

	header := m.styles.header.Render(clip(fmt.Sprintf("Prompt Board — %d cards", m.store.Board().CardCount()), m.width))
	// Compact help to avoid overflowing small terminals; full help with '?'
	help := m.styles.help.Render(clip("(? help • q quit • hjkl/arrows move • H/L J/K drag • n new • r run • enter preview • / filter)", m.width))

	cols := len(m.columns)
	colWidths := m.columnWidths()
	itemsWindow := m.itemsWindowCount()

	rendered := make([]string, cols)
	for i, c := range m.columns {
		var items []string
		if len(c.cards) == 0 {
			items = []string{m.styles.muted.Render("(empty)")}
		} else {
			start := c.offset
			end := min(len(c.cards), start+itemsWindow)

			// Top indicator or spacer
			if start > 0 {
				items = append(items, m.styles.muted.Render(fmt.Sprintf("… %d above", start)))
			} else {
				items = append(items, "")
			}
			for idx := start; idx < end; idx++ {
				card := c.cards[idx]
				marker := "  "
				if m.running[card.ID] {
					marker = m.spin.View() + " "
				} else if card.Result != "" {
					marker = "✓ "
				}
				line := marker + card.Title
				if m.showModels {
					line += " [" + card.Model + "]"
				}
				if i == m.selectedCol && idx == c.cursor {
					items = append(items, m.styles.selected.Render(clip(line, colWidths[i]-4)))
				} else {
					items = append(items, clip(line, colWidths[i]-4))
				}
			}
			// Bottom indicator or spacer
			if end < len(c.cards) {
				items = append(items, m.styles.muted.Render(fmt.Sprintf("… %d below", len(c.cards)-end)))
			} else {
				items = append(items, "")
			}
		}
		box := m.styles.boxStyle
		if i == m.selectedCol {
			box = m.styles.boxActive
		}
		title := m.styles.title.Render(fmt.Sprintf("%s (%d)", c.title, len(c.cards)))
		rendered[i] = box.Width(colWidths[i]).Render(title + "\n" + strings.Join(items, "\n"))
	}
	boardView := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)

	if m.filtering {
		return header + "\n" + help + "\n\n" + boardView + "\n\nFilter: " + m.filterInput.View()
	}
	footer := ""
	if m.notice != "" {
		footer += "\n" + m.styles.notice.Render(clip(m.notice, m.width))
	}
	if m.filter != "" {
		footer += "\n" + m.styles.muted.Render("Filter: "+m.filter+" (esc clears; moves disabled while filtering)")
	}
	baseView := header + "\n" + help + "\n\n" + boardView + footer + "\n"

	if m.showingHelp {
		return m.renderOverlay(baseView, m.helpLayout, m.helpOffset)
	}
	if m.previewing {
		return m.renderOverlay(baseView, m.previewLayout, m.previewOffset)
	}
	return baseView
}

func (m boardModel) viewCreate() string {
	focusTag := func(idx int, label string) string {
		if m.createFocus == idx {
			return m.styles.helpKey.Render("> " + label)
		}
		return m.styles.muted.Render("  " + label)
	}
	model := "(none configured)"
	if len(m.models) > 0 {
		model = m.models[m.modelIdx%len(m.models)]
	}
	var b strings.Builder
	b.WriteString(m.styles.header.Render("New Card") + "\n\n")
	b.WriteString(focusTag(0, "Title") + "\n" + m.titleInput.View() + "\n\n")
	b.WriteString(focusTag(1, "Prompt") + "\n" + m.promptInput.View() + "\n\n")
	b.WriteString(focusTag(2, "Model") + "  ← " + model + " →\n\n")
	b.WriteString(m.styles.help.Render("(tab next field • enter on Model creates • esc cancels)"))
	return b.String()
}

func (m boardModel) viewSettings() string {
	var b strings.Builder
	b.WriteString(m.styles.header.Render("Settings — OpenAI API Key") + "\n\n")
	b.WriteString(m.keyInput.View() + "\n\n")
	b.WriteString(m.styles.help.Render("(enter saves • esc cancels • key is stored locally, never shown)"))
	return b.String()
}

// renderOverlay draws a scrollable overlay box over the base view.
func (m boardModel) renderOverlay(baseView string, layout func() ([]string, int, int), offset int) string {
	lines, overlayWidth, viewport := layout()
	maxOffset := 0
	if viewport < len(lines) {
		maxOffset = len(lines) - viewport
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	start := offset
	end := min(len(lines), start+viewport)
	content := strings.Join(lines[start:end], "\n")
	overlayHeight := viewport + 3

	y := max(0, (m.height-overlayHeight)/2)

	pos := fmt.Sprintf("%d/%d lines — ↑/↓ PgUp/PgDn Home/End — q closes", end, len(lines))
	overlay := m.styles.overlay.Width(overlayWidth).Render(content + "\n" + m.styles.muted.Render(pos))

	baseLines := strings.Split(baseView, "\n")
	overlayLines := strings.Split(overlay, "\n")
	for len(baseLines) < y+len(overlayLines) {
		baseLines = append(baseLines, "")
	}
	for i, overlayLine := range overlayLines {
		if y+i < len(baseLines) {
			baseLines[y+i] = overlayLine
		}
	}
	return strings.Join(baseLines, "\n")
}

// previewLayout renders the preview card's content as markdown and
// returns its lines, overlay width, and viewport height.
func (m boardModel) previewLayout() ([]string, int, int) {
	overlayWidth := min(100, max(40, m.width-8))

	c := m.previewCard
	body := c.Prompt
	head := "Prompt"
	if c.Result != "" {
		body = c.Result
		head = "Result"
	}
	content := m.styles.overlayHead.Render(fmt.Sprintf("%s — %s [%s]", c.Title, head, c.Model)) + "\n\n" +
		markdown.Render(overlayWidth-4, body)

	lines := strings.Split(content, "\n")
	viewport := max(3, min(m.height-6, len(lines)))
	return lines, overlayWidth, viewport
}

// helpLayout computes wrapped help lines, target overlay width, and viewport height
func (m boardModel) helpLayout() ([]string, int, int) {
	helpContent := m.buildHelpContent()
	overlayWidth := min(80, max(40, m.width-8))
	contentLines := strings.Split(helpContent, "\n")
	wrapped := make([]string, 0, len(contentLines))
	wrapWidth := max(10, overlayWidth-4)
	for _, line := range contentLines {
		for len(line) > wrapWidth {
			wrapped = append(wrapped, line[:wrapWidth])
			line = line[wrapWidth:]
		}
		wrapped = append(wrapped, line)
	}
	viewport := max(3, min(m.height-4, len(wrapped)+3)-3)
	return wrapped, overlayWidth, viewport
}

func (m boardModel) buildHelpContent() string {
	title := m.styles.overlayHead.Render("Prompt Board - Keyboard Shortcuts")

	helpLines := []string{
		m.styles.helpKey.Render("q/ctrl+c") + "    Quit (board is saved as you go)",
		m.styles.helpKey.Render("?") + "           Toggle this help overlay",
		"",
		m.styles.overlayHead.Render("Navigation:"),
		m.styles.helpKey.Render("hjkl/arrows") + " Navigate",
		m.styles.helpKey.Render("tab/shift+tab") + " Switch column",
		"",
		m.styles.overlayHead.Render("Cards:"),
		m.styles.helpKey.Render("n") + "           New card (lands in To Do)",
		m.styles.helpKey.Render("r") + "           Run the selected To Do card",
		m.styles.helpKey.Render("enter/p") + "     Preview prompt or result (markdown)",
		m.styles.helpKey.Render("d") + "           Export markdown file to current directory",
		m.styles.helpKey.Render("x") + "           Delete the selected card",
		m.styles.helpKey.Render("H/L") + "         Move card to previous/next column",
		m.styles.helpKey.Render("J/K") + "         Reorder card within its column",
		"",
		m.styles.overlayHead.Render("Other:"),
		m.styles.helpKey.Render("/") + "           Filter cards (live search; esc clears)",
		m.styles.helpKey.Render("m") + "           Toggle model tags on cards",
		m.styles.helpKey.Render("s") + "           Set the OpenAI API key",
		"",
		m.styles.overlayHead.Render("Tips:"),
		"  • A ✓ marks cards that carry a stored result",
		"  • Failed runs send the card back to To Do",
		"  • OPENAI_API_KEY overrides the stored key",
	}

	return title + "\n\n" + strings.Join(helpLines, "\n") + "\n\n" + m.styles.muted.Render("Press ? again to close")
}

func (m boardModel) currentCard() (board.Card, bool) {
	if len(m.columns) == 0 {
		return board.Card{}, false
	}
	c := m.columns[m.selectedCol]
	if len(c.cards) == 0 {
		return board.Card{}, false
	}
	return c.cards[c.cursor], true
}

func (m boardModel) columnWidths() []int {
	usableWidth := m.width - 6 // account for borders and spacing
	widths := make([]int, len(m.columns))
	for i := range widths {
		widths[i] = max(16, usableWidth/len(m.columns))
	}
	return widths
}

// viewportItemsHeight calculates how many rows of items can be displayed per column
// given the current terminal height and rough space usage of headers/footers.
func (m boardModel) viewportItemsHeight() int {
	reserved := 5
	if m.filtering {
		reserved += 2
	}
	avail := max(5, m.height-reserved)
	return max(1, avail-3)
}

// itemsWindowCount returns the number of item rows we draw, excluding the two
// indicator lines (top and bottom). This keeps ensureCursorVisible and View aligned.
func (m boardModel) itemsWindowCount() int {
	base := m.viewportItemsHeight()
	if base <= 2 {
		return 1
	}
	return base - 2
}

// ensureCursorVisible adjusts the column offset so that the cursor stays within the
// visible window, honoring the up/down indicators.
func (m boardModel) ensureCursorVisible(c *cardColumnView) {
	if len(c.cards) == 0 {
		c.offset = 0
		c.cursor = 0
		return
	}
	if c.cursor < 0 {
		c.cursor = 0
	}
	if c.cursor > len(c.cards)-1 {
		c.cursor = len(c.cards) - 1
	}
	vh := m.itemsWindowCount()
	if c.cursor < c.offset {
		c.offset = c.cursor
	}
	if c.cursor >= c.offset+vh {
		c.offset = c.cursor - vh + 1
	}
	maxOffset := 0
	if len(c.cards) > vh {
		maxOffset = len(c.cards) - vh
	}
	if c.offset > maxOffset {
		c.offset = maxOffset
	}
	if c.offset < 0 {
		c.offset = 0
	}
}

func (m *boardModel) defaultModelIdx() int {
	def := usercfg.GetRuntimeConfig().DefaultModel
	for i, name := range m.models {
		if name == def {
			return i
		}
	}
	return 0
}

func (m boardModel) saveUIPreferences() {
	prefs := usercfg.UIPreferences{
		LastSelectedCol: m.selectedCol,
		ShowCardModels:  m.showModels,
	}

	// Best-effort; board state itself is already persisted by the store
	_ = usercfg.SaveUIPrefs(prefs)
}

func StartBoard(st *storage.Store, s *board.Store, runner *board.Runner) error {
	model := initialBoardModel(st, s, runner)
	p := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := p.Run()

	if bm, ok := finalModel.(boardModel); ok {
		bm.saveUIPreferences()
	}

	return err
}

func clip(s string, w int) string {
	if w <= 0 || len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}
	return s[:w-3] + "..."
}
