package env

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/readahead"

	"github.com/ardnew/dproj/pkg"
)

// Assignment is a SET statement read from an rsvars script.
type Assignment struct {
	Line  int
	Key   string
	Value string
}

// ParseRsvars returns a copy of seeded with the assignments of an rsvars
// script applied in order. Each value has its %NAME% references expanded
// against the store as it stands when the line is reached, so a line sees
// the seeded variables and every earlier assignment. A nil seeded store is
// treated as empty.
func ParseRsvars(text string, seeded *Store) (*Store, error) {
	out := seeded.Clone()

	if err := out.MergeRsvars(text); err != nil {
		return nil, err
	}

	return out, nil
}

// ReadRsvars reads an rsvars script from r. See [ParseRsvars].
func ReadRsvars(r io.Reader, seeded *Store) (*Store, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, pkg.ErrReadInput.Wrap(err)
	}

	return ParseRsvars(string(data), seeded)
}

// ReadRsvarsFile reads the rsvars script at path. See [ParseRsvars].
func ReadRsvarsFile(path string, seeded *Store) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkg.ErrReadInput.Wrap(err)
	}
	defer f.Close()

	return ReadRsvars(f, seeded)
}

// MergeRsvars applies the assignments of an rsvars script to s. On error s
// is left unchanged.
func (s *Store) MergeRsvars(text string) error {
	list, err := Assignments(text)
	if err != nil {
		return err
	}

	for _, a := range list {
		s.Override(a.Key, s.ExpandBatch(a.Value))
	}

	return nil
}

// Assignments returns the SET statements of an rsvars script in order,
// with values unexpanded. Lines that are not assignments are skipped.
func Assignments(text string) ([]Assignment, error) {
	text = strings.TrimPrefix(text, "\uFEFF")

	if !utf8.ValidString(text) {
		return nil, pkg.ErrParse.Wrapf("invalid UTF-8")
	}

	var list []Assignment

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(nil, len(text)+1)
	sc.Split(scanLines)

	for n := 1; sc.Scan(); n++ {
		key, value, ok, err := parseSet(sc.Text())
		if err != nil {
			return nil, pkg.ErrParse.Wrapf("line %d: %w", n, err)
		}

		if ok {
			list = append(list, Assignment{Line: n, Key: key, Value: value})
		}
	}

	if err := sc.Err(); err != nil {
		return nil, pkg.ErrReadInput.Wrap(err)
	}

	return list, nil
}

// errUnterminatedQuote reports SET "NAME=VALUE without a closing quote.
var errUnterminatedQuote = pkg.MakeErrorf("unterminated quoted assignment")

// parseSet recognizes SET NAME=VALUE, @SET NAME=VALUE, and the quoted form
// SET "NAME=VALUE". The keyword is case-insensitive. SET /A, SET /P, and
// commands that merely start with "set" (SETLOCAL) are not assignments.
// Whitespace around the line is ignored.
func parseSet(line string) (key, value string, ok bool, err error) {
	s := strings.Trim(line, " \t")
	s = strings.TrimLeft(strings.TrimPrefix(s, "@"), " \t")

	if len(s) < 4 || !strings.EqualFold(s[:3], "set") ||
		(s[3] != ' ' && s[3] != '\t') {
		return "", "", false, nil
	}

	s = strings.TrimLeft(s[3:], " \t")
	if strings.HasPrefix(s, "/") {
		return "", "", false, nil
	}

	if strings.HasPrefix(s, `"`) {
		end := strings.LastIndexByte(s, '"')
		if end == 0 {
			return "", "", false, errUnterminatedQuote
		}

		s = s[1:end]
	}

	name, value, found := strings.Cut(s, "=")
	if !found {
		return "", "", false, nil
	}

	key = Normalize(name)
	if key == "" {
		return "", "", false, nil
	}

	return key, value, true, nil
}

// ExpandBatch expands %NAME% references in value the way a batch script
// does: unknown names expand to nothing, %% yields a literal percent sign,
// and a trailing unmatched % is kept verbatim.
func (s *Store) ExpandBatch(value string) string {
	if !strings.Contains(value, "%") {
		return value
	}

	var sb strings.Builder

	for {
		i := strings.IndexByte(value, '%')
		if i < 0 {
			sb.WriteString(value)

			break
		}

		sb.WriteString(value[:i])
		value = value[i+1:]

		if strings.HasPrefix(value, "%") {
			sb.WriteByte('%')
			value = value[1:]

			continue
		}

		j := strings.IndexByte(value, '%')
		if j < 0 {
			sb.WriteByte('%')
			sb.WriteString(value)

			break
		}

		sb.WriteString(s.Get(value[:j]))
		value = value[j+1:]
	}

	return sb.String()
}

// scanLines splits on \n, \r\n, and lone \r.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}

				return i + 1, data[:i], nil
			}

			if !atEOF {
				return 0, nil, nil
			}
		}

		return i + 1, data[:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}

	return 0, nil, nil
}
