package main

import (
	"testing"

	"promptboard/internal/board"
)

func TestFindCardByRef(t *testing.T) {
	b := board.NewBoard()
	c1, _ := board.NewCard("Release Notes", "p1", "gpt-4o")
	c2, _ := board.NewCard("haiku", "p2", "gpt-4o-mini")
	board.FindColumn(&b, board.StageTodo).Cards = []board.Card{c1}
	board.FindColumn(&b, board.StageDone).Cards = []board.Card{c2}

	// Exact id match
	got, stage, ok := findCardByRef(b, c2.ID)
	if !ok || got.ID != c2.ID || stage != board.StageDone {
		t.Errorf("Id lookup failed: got %+v in %s (ok=%v)", got, stage, ok)
	}

	// Case-insensitive title match
	got, stage, ok = findCardByRef(b, "release notes")
	if !ok || got.ID != c1.ID || stage != board.StageTodo {
		t.Errorf("Title lookup failed: got %+v in %s (ok=%v)", got, stage, ok)
	}

	if _, _, ok := findCardByRef(b, "nope"); ok {
		t.Error("Unknown reference should not resolve")
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("Long ids truncate to 8 chars, got %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("Short ids pass through, got %q", got)
	}
}
