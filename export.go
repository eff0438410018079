package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"promptboard/internal/board"
	"promptboard/internal/errors"
)

// markdownTemplate is the fixed formatting-instruction preamble prepended
// when exporting a card's prompt. Plain concatenation, no placeholders.
const markdownTemplate = `Create a well-structured markdown document following these guidelines:

1. Use appropriate heading levels (# for main title, ## for sections, ### for subsections)
2. Include bullet points or numbered lists where relevant
3. Utilize **bold** and *italic* text for emphasis
4. Add code blocks with proper language syntax highlighting where applicable
5. Include relevant links or references if needed
6. Use blockquotes for important notes or quotes
7. Add horizontal rules (---) to separate major sections
8. Include tables if data presentation is needed

Here's your prompt to transform into markdown:

`

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a card title into a filesystem-friendly name.
func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugPattern.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// exportFilename picks the markdown filename for a card.
func exportFilename(c board.Card) string {
	slug := slugify(c.Title)
	if slug == "" {
		return fmt.Sprintf("prompt_result_%s.md", c.ID)
	}
	return slug + ".md"
}

// exportContent returns the markdown document for a card: the run result
// when one exists, otherwise the prompt wrapped in the fixed template.
// promptOnly forces the templated prompt even for a completed card.
func exportContent(c board.Card, promptOnly bool) string {
	if c.Result != "" && !promptOnly {
		return c.Result
	}
	return markdownTemplate + c.Prompt
}

// exportCard writes the card's markdown file into dir and returns its path.
func exportCard(c board.Card, dir string, promptOnly bool) (string, error) {
	path := filepath.Join(dir, exportFilename(c))
	if err := os.WriteFile(path, []byte(exportContent(c, promptOnly)), 0644); err != nil {
		return "", errors.NewExportError(path, err)
	}
	return path, nil
}
