package repl

import (
	"slices"
	"testing"
)

func TestWordBounds(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		cursor    int
		wantWord  string
		wantStart int
		wantEnd   int
	}{
		{"empty", "", 0, "", 0, 0},
		{"single word", "props", 5, "props", 0, 5},
		{"after dot", "props.DCC", 9, "DCC", 6, 9},
		{"cursor mid word", "props.DCC_Define", 8, "DCC_Define", 6, 16},
		{"inside call", `split(prop("DCC`, 15, "DCC", 12, 15},
		{"after operator", "config==Deb", 11, "Deb", 8, 11},
		{"on boundary", "a + ", 4, "", 4, 4},
		{"cursor past end", "env", 10, "env", 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, start, end := wordBounds(tt.input, tt.cursor)
			if word != tt.wantWord || start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("wordBounds(%q, %d) = %q, %d, %d; want %q, %d, %d",
					tt.input, tt.cursor, word, start, end,
					tt.wantWord, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParent(t *testing.T) {
	tests := []struct {
		input     string
		wordStart int
		want      string
	}{
		{"props.DCC", 6, "props"},
		{"x + mung.pre", 9, "mung"},
		{"props", 0, ""},
		{"a + b", 4, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parent(tt.input, tt.wordStart); got != tt.want {
				t.Errorf("parent(%q, %d) = %q, want %q", tt.input, tt.wordStart, got, tt.want)
			}
		})
	}
}

func TestModel_Candidates(t *testing.T) {
	m := testModel(t)

	top := m.candidates("")
	for _, name := range []string{"props", "prop", "mung", "len", "upper"} {
		if !slices.Contains(top, name) {
			t.Errorf("top-level candidates missing %q", name)
		}
	}

	if got := m.candidates("props"); !slices.Equal(got, m.view.Names()) {
		t.Errorf("props candidates = %v", got)
	}

	if got := m.candidates("mung"); !slices.Equal(got, []string{"prefix"}) {
		t.Errorf("mung candidates = %v", got)
	}

	if got := m.candidates("config"); got != nil {
		t.Errorf("config candidates = %v", got)
	}
}

func TestModel_ComputeMatches(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty top level", "", nil},
		{"all members", "props.", []string{"Config", "Platform", "DCC_Define", "DCC_ExeOutput", "DCC_UnitSearchPath"}},
		{"control command", ":qu", []string{"quit"}},
		{"unknown parent", "config.x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testModel(t)
			m.input.SetValue(tt.input)
			m.input.CursorEnd()

			matches, _, _ := m.computeMatches()

			var got []string
			for _, match := range matches {
				got = append(got, match.Str)
			}

			if !slices.Equal(got, tt.want) {
				t.Errorf("computeMatches(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsFunction(t *testing.T) {
	for name, want := range map[string]bool{
		"prop":   true,
		"split":  true,
		"len":    true,
		"props":  false,
		"config": false,
	} {
		if got := isFunction(name); got != want {
			t.Errorf("isFunction(%q) = %v, want %v", name, got, want)
		}
	}
}
