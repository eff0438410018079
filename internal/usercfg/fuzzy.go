package usercfg

import (
	"strings"
	"unicode"
)

// FuzzyMatch reports whether every character of pattern appears in target
// in order (case-insensitive).
func FuzzyMatch(pattern, target string) bool {
	if pattern == "" {
		return true
	}
	if target == "" {
		return false
	}

	pattern = strings.ToLower(pattern)
	target = strings.ToLower(target)

	i := 0
	for j := 0; i < len(pattern) && j < len(target); j++ {
		if pattern[i] == target[j] {
			i++
		}
	}
	return i == len(pattern)
}

// FuzzyScore calculates a fuzzy match score (higher is better).
// Returns -1 if no match, 0-100 for match quality.
func FuzzyScore(pattern, target string) int {
	if !FuzzyMatch(pattern, target) {
		return -1
	}

	if pattern == "" {
		return 100
	}

	pattern = strings.ToLower(pattern)
	target = strings.ToLower(target)

	// Favor consecutive matches; penalize long targets a little.
	score := 0
	patternIdx := 0
	consecutive := 0

	for i, char := range target {
		if patternIdx < len(pattern) && rune(pattern[patternIdx]) == char {
			patternIdx++
			consecutive++
			score += 10 + consecutive
		} else {
			consecutive = 0
		}
		if i > len(pattern)*3 {
			score -= 1
		}
	}

	// Bonus for substring matches
	if strings.Contains(target, pattern) {
		score += 20
	}

	maxScore := len(pattern) * 15
	if score > maxScore {
		score = maxScore
	}
	if score < 0 {
		score = 0
	}

	return (score * 100) / maxScore
}

// NormalizeSearchText lowercases text and strips punctuation that should
// not affect filtering.
func NormalizeSearchText(text string) string {
	var result strings.Builder
	result.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' {
			result.WriteRune(r)
		}
	}

	return result.String()
}
