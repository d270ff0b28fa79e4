// Package moderation masks censored words in relayed message text.
// Matching is resilient to leet speak, punctuation noise, and casing;
// the original spacing of the input is preserved.
package moderation

import (
	"fmt"
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// textIndex is the normalized view of an input with a mapping back to the
// original rune positions, so masking can hit the exact source characters.
type textIndex struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized
// dictionary. Words reduced to nothing by normalization are skipped.
func NewModerator(censoredWords []string, replacement rune, log *slog.Logger) (Moderator, error) {
	var patterns [][]rune
	for _, word := range censoredWords {
		normalized := normalizeRunes([]rune(word))
		if len(normalized) == 0 {
			log.Debug(fmt.Sprintf("Skipping unusable dictionary entry %q", word))
			continue
		}
		patterns = append(patterns, normalized)
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, replacement: replacement, log: log}, nil
}

// Censor masks every dictionary hit and returns the masked text along
// with the normalized words that were found.
func (m *Moderator) Censor(original string) (string, []string) {
	index := m.normalize(original)
	if len(index.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(index.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var found []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(index.origIdx) {
			continue
		}
		found = append(found, string(span.Word))

		// Mask from the first to the last original rune of the span,
		// punctuation caught in between included.
		origStart := index.origIdx[normStart]
		origEnd := index.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.replacement
		}
	}

	return string(origRunes), found
}

func (m *Moderator) normalize(input string) textIndex {
	origRunes := []rune(input)
	index := textIndex{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		index.normalized = append(index.normalized, unicode.ToLower(clean))
		index.origIdx = append(index.origIdx, i)
	}
	return index
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak substitutions back to their
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during matching.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
