package repl

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/expr-lang/expr/builtin"
	"github.com/sahilm/fuzzy"
)

// ctrlCommands are the commands accepted after the ':' prefix.
var ctrlCommands = []string{"help", "list", "clear", "quit"}

// queryNames are the top-level identifiers of the query environment.
var queryNames = []string{
	"props", "config", "platform", "prop", "env", "expand", "split", "mung",
}

// isWordBoundary returns true if the rune is a word delimiter for completion
// purposes: whitespace, the member-access dot, and expr-lang punctuation.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']',
		'+', '-', '*', '/', '%',
		'<', '>', '=', '!',
		'&', '|', ',', '?', ':', ';',
		'"', '\'':
		return true
	}

	return false
}

// wordBounds returns the word at the cursor and its byte boundaries within
// input. The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parent returns the identifier before the member-access dot that precedes
// wordStart, or "" for a top-level word.
func parent(input string, wordStart int) string {
	prefix := input[:wordStart]

	prefix, ok := strings.CutSuffix(prefix, ".")
	if !ok {
		return ""
	}

	word, _, _ := wordBounds(prefix, len(prefix))

	return word
}

// candidates returns the completions valid after parent. Property names
// complete members of props; everything else completes at the top level.
func (m model) candidates(parent string) []string {
	switch parent {
	case "":
		names := slices.Clone(queryNames)
		names = append(names, slices.Sorted(maps.Keys(builtin.Index))...)

		return names

	case "props":
		return m.names

	case "mung":
		return []string{"prefix"}

	default:
		return nil
	}
}

// computeMatches ranks the candidates for the word at the cursor. An empty
// top-level word has no matches; an empty member lists every candidate.
func (m model) computeMatches() (matches fuzzy.Matches, start, end int) {
	input := m.input.Value()

	if strings.HasPrefix(input, ":") {
		word, start, end := wordBounds(input, m.input.Position())
		if start != 1 {
			return nil, start, end
		}

		return fuzzy.Find(word, ctrlCommands), start, end
	}

	word, start, end := wordBounds(input, m.input.Position())
	par := parent(input, start)
	cands := m.candidates(par)

	if word == "" {
		if par == "" {
			return nil, start, end
		}

		matches = make(fuzzy.Matches, len(cands))
		for i, c := range cands {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, start, end
	}

	return fuzzy.Find(word, cands), start, end
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within width. The selected candidate is highlighted while tab-cycling.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if used+entryWidth+ellipsisWidth > width && i > 0 {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders one candidate with its matched characters
// highlighted. Functions get a "()" suffix.
func renderCandidate(match fuzzy.Match, selected bool) string {
	baseStyle := suggestionStyle
	highlightStyle := suggestionStyle.Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = selectedStyle.Bold(true)
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	if isFunction(match.Str) {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}

// isFunction reports whether name is a callable of the query environment.
func isFunction(name string) bool {
	switch name {
	case "prop", "env", "expand", "split", "prefix":
		return true
	}

	_, ok := builtin.Index[name]

	return ok
}
