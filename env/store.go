package env

import (
	"iter"
	"maps"
	"os"
	"strings"
)

// Store is an ordered, case-insensitive string mapping.
//
// The zero value is an empty store ready for use. A Store is not safe for
// concurrent writes; concurrent reads of a store that is no longer written
// are safe.
type Store struct {
	keys  []string
	vals  []string
	index map[string]int
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// FromEnviron returns a store seeded from a list of "KEY=VALUE" entries in
// the format of [os.Environ].
func FromEnviron(environ []string) *Store {
	s := New()
	s.Seed(environ)

	return s
}

// Normalize returns the canonical form of key.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Seed adds "KEY=VALUE" entries in the format of [os.Environ]. Entries
// without "=" or with an empty key, such as the per-drive "=C:=C:\"
// entries on Windows, are skipped.
func (s *Store) Seed(environ []string) {
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if ok {
			s.Override(key, value)
		}
	}
}

// SeedFromProcessEnv adds every variable of the current process.
func (s *Store) SeedFromProcessEnv() {
	s.Seed(os.Environ())
}

// Override sets key to value, replacing any previous value of the same
// normalized key without changing its position. Empty keys are ignored.
func (s *Store) Override(key, value string) {
	key = Normalize(key)
	if key == "" {
		return
	}

	if s.index == nil {
		s.index = make(map[string]int)
	}

	if i, ok := s.index[key]; ok {
		s.vals[i] = value

		return
	}

	s.index[key] = len(s.keys)
	s.keys = append(s.keys, key)
	s.vals = append(s.vals, value)
}

// Lookup returns the value of key and whether it is present.
func (s *Store) Lookup(key string) (string, bool) {
	if s == nil {
		return "", false
	}

	i, ok := s.index[Normalize(key)]
	if !ok {
		return "", false
	}

	return s.vals[i], true
}

// Get returns the value of key, or "" if it is not present.
func (s *Store) Get(key string) string {
	v, _ := s.Lookup(key)

	return v
}

// Len returns the number of keys.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}

	return len(s.keys)
}

// Keys returns the normalized keys in insertion order.
func (s *Store) Keys() []string {
	if s == nil {
		return nil
	}

	return append([]string(nil), s.keys...)
}

// All returns an iterator over key/value pairs in insertion order.
func (s *Store) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if s == nil {
			return
		}

		for i, k := range s.keys {
			if !yield(k, s.vals[i]) {
				return
			}
		}
	}
}

// Environ returns the store as "KEY=VALUE" entries in insertion order.
func (s *Store) Environ() []string {
	out := make([]string, 0, s.Len())

	for k, v := range s.All() {
		out = append(out, k+"="+v)
	}

	return out
}

// Map returns a copy of the store as a map.
func (s *Store) Map() map[string]string {
	out := make(map[string]string, s.Len())

	for k, v := range s.All() {
		out[k] = v
	}

	return out
}

// Clone returns an independent copy of s.
func (s *Store) Clone() *Store {
	c := New()
	if s == nil {
		return c
	}

	c.keys = append([]string(nil), s.keys...)
	c.vals = append([]string(nil), s.vals...)
	c.index = maps.Clone(s.index)

	return c
}
