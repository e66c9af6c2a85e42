package dproj

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/dproj/env"
)

// DefaultMaxDepth bounds the nesting of $(Name) expansion.
var DefaultMaxDepth = 64

// defRef identifies one definition of a property: its normalized name and
// its position among the merged definitions of that name.
type defRef struct {
	key   string
	name  string
	layer int
}

// resolver expands $(Name) and %Name% references.
//
// Lookup order for $(Name) is the bound build variables, then the merged
// property definitions, then (with fallback enabled) the environment.
// Directly inside the definition of Name, $(Name) refers to the previous
// definition of Name.
type resolver struct {
	view     *ActiveGroup
	env      *env.Store
	vars     map[string]string
	maxDepth int
	fallback bool
	empty    bool
}

func (r *resolver) expand(raw string) (string, error) {
	return r.expandIn(raw, nil)
}

func (r *resolver) expandIn(raw string, chain []defRef) (string, error) {
	if !strings.ContainsAny(raw, "$%") {
		return raw, nil
	}

	var sb strings.Builder

	for len(raw) > 0 {
		i := strings.IndexAny(raw, "$%")
		if i < 0 {
			sb.WriteString(raw)

			break
		}

		sb.WriteString(raw[:i])
		raw = raw[i:]

		if raw[0] == '$' {
			name, n, ok := propertyToken(raw)
			if n == 0 {
				sb.WriteByte('$')
				raw = raw[1:]

				continue
			}

			tok := raw[:n]
			raw = raw[n:]

			if !ok {
				sb.WriteString(tok)

				continue
			}

			val, found, err := r.property(name, chain)
			if err != nil {
				return "", err
			}

			sb.WriteString(r.orMissing(val, tok, found))

			continue
		}

		name, n, ok := envToken(raw)
		if !ok {
			sb.WriteByte('%')
			raw = raw[1:]

			continue
		}

		tok := raw[:n]
		raw = raw[n:]

		val, found := r.env.Lookup(name)
		sb.WriteString(r.orMissing(val, tok, found))
	}

	return sb.String(), nil
}

func (r *resolver) orMissing(val, tok string, found bool) string {
	switch {
	case found:
		return val
	case r.empty:
		return ""
	default:
		return tok
	}
}

func (r *resolver) property(name string, chain []defRef) (string, bool, error) {
	key := strings.ToUpper(name)

	if v, ok := r.vars[key]; ok {
		return v, true, nil
	}

	layer := -1

	if n := len(chain); n > 0 && chain[n-1].key == key {
		layer = chain[n-1].layer - 1
		if layer < 0 {
			return r.fromEnv(name)
		}
	}

	p, layer, ok := r.view.definition(key, layer)
	if !ok {
		return r.fromEnv(name)
	}

	ref := defRef{key: key, name: p.name, layer: layer}

	if slices.ContainsFunc(chain, func(c defRef) bool {
		return c.key == ref.key && c.layer == ref.layer
	}) {
		return "", false, cyclic(append(chain, ref), "reference cycle")
	}

	if len(chain) >= r.maxDepth {
		return "", false, cyclic(append(chain, ref), "maximum depth exceeded")
	}

	val, err := r.expandIn(p.Value(), append(chain[:len(chain):len(chain)], ref))
	if err != nil {
		return "", false, err
	}

	return val, true, nil
}

func (r *resolver) fromEnv(name string) (string, bool, error) {
	if !r.fallback {
		return "", false, nil
	}

	v, ok := r.env.Lookup(name)

	return v, ok, nil
}

func cyclic(chain []defRef, reason string) error {
	names := make([]string, len(chain))
	for i, c := range chain {
		names[i] = c.name
	}

	return ErrCyclicReference.With(
		slog.String("reason", reason),
		slog.String("chain", strings.Join(names, " -> ")),
		slog.Int("depth", len(chain)),
	)
}

// propertyToken scans a $(...) reference at the start of s. It returns the
// property name, the length of the token, and whether the token is a plain
// property reference. A zero length means s does not start a reference.
// Property functions such as $([System.IO.Path]::GetFileName(...)) report a
// non-zero length but ok false so they can be copied verbatim.
func propertyToken(s string) (name string, n int, ok bool) {
	if len(s) < 3 || s[0] != '$' || s[1] != '(' {
		return "", 0, false
	}

	depth := 0

	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				name = strings.TrimSpace(s[2:i])

				return name, i + 1, isPropertyName(name)
			}
		}
	}

	return "", 0, false
}

func isPropertyName(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case i > 0 && (c == '-' || c >= '0' && c <= '9'):
		default:
			return false
		}
	}

	return true
}

// envToken scans a %NAME% reference at the start of s. Names may not be
// empty, contain whitespace, or start with "(" (item metadata syntax).
func envToken(s string) (name string, n int, ok bool) {
	if len(s) < 3 || s[0] != '%' {
		return "", 0, false
	}

	end := strings.IndexByte(s[1:], '%')
	if end <= 0 {
		return "", 0, false
	}

	name = s[1 : 1+end]
	if name[0] == '(' || strings.ContainsAny(name, " \t\r\n") {
		return "", 0, false
	}

	return name, end + 2, true
}
