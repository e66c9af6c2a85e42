package dproj

import (
	"iter"
	"log/slog"
	"maps"
	"strings"
)

// ActiveGroup is the merged view of the property groups whose conditions
// hold for a configuration and platform. It refers to the live properties
// of the document, so after a mutation its raw values change while its
// group selection does not. Obtain a new view after mutating.
type ActiveGroup struct {
	ctx      *Context
	config   string
	platform string
	vars     map[string]string
	entries  []*entry
	index    map[string]int
}

// entry collects every merged definition of one property name in document
// order. The last definition is the effective one.
type entry struct {
	defs []*Property
}

func newActiveGroup(c *Context, config, platform string, vars map[string]string) *ActiveGroup {
	return &ActiveGroup{
		ctx:      c,
		config:   config,
		platform: platform,
		vars:     vars,
		index:    make(map[string]int),
	}
}

// Configuration returns the configuration name the view was built for.
func (a *ActiveGroup) Configuration() string { return a.config }

// Platform returns the platform name the view was built for.
func (a *ActiveGroup) Platform() string { return a.platform }

// Variables returns a copy of the build variables bound while evaluating
// conditions, keyed by upper-case name.
func (a *ActiveGroup) Variables() map[string]string {
	return maps.Clone(a.vars)
}

// Len returns the number of distinct property names.
func (a *ActiveGroup) Len() int { return len(a.entries) }

// Names returns the property names in order of first definition.
func (a *ActiveGroup) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.defs[0].name
	}

	return names
}

// All returns an iterator over the effective definition of each property in
// order of first definition.
func (a *ActiveGroup) All() iter.Seq[*Property] {
	return func(yield func(*Property) bool) {
		for _, e := range a.entries {
			if !yield(e.defs[len(e.defs)-1]) {
				return
			}
		}
	}
}

// Get returns the effective definition of name. Names compare
// case-insensitively.
func (a *ActiveGroup) Get(name string) (*Property, bool) {
	p, _, ok := a.definition(strings.ToUpper(name), -1)

	return p, ok
}

// Definitions returns every merged definition of name in document order.
func (a *ActiveGroup) Definitions(name string) []*Property {
	i, ok := a.index[strings.ToUpper(name)]
	if !ok {
		return nil
	}

	return append([]*Property(nil), a.entries[i].defs...)
}

// Value returns the raw value of the effective definition of name.
func (a *ActiveGroup) Value(name string) (string, bool) {
	p, ok := a.Get(name)
	if !ok {
		return "", false
	}

	return p.Value(), true
}

// Resolve returns the fully expanded value of the property name.
// Build variables and, unless disabled, environment variables are
// consulted when no property of that name is defined.
func (a *ActiveGroup) Resolve(name string) (string, error) {
	val, ok, err := a.resolver(false).property(name, nil)
	if err != nil {
		return "", err
	}

	if !ok {
		return "", ErrPropertyNotFound.With(slog.String("name", name))
	}

	return val, nil
}

// Expand expands the references in raw against this view. Unknown names are
// left verbatim.
func (a *ActiveGroup) Expand(raw string) (string, error) {
	return a.resolver(false).expand(raw)
}

// ResolvedProperty is a property paired with its expanded value.
type ResolvedProperty struct {
	Name   string `json:"name"   yaml:"name"`
	Raw    string `json:"raw"    yaml:"raw"`
	Value  string `json:"value"  yaml:"value"`
	Group  int    `json:"group"  yaml:"group"`
	Handle Handle `json:"-"      yaml:"-"`
}

// ResolveAll expands every effective property in order of first definition.
func (a *ActiveGroup) ResolveAll() ([]ResolvedProperty, error) {
	r := a.resolver(false)
	out := make([]ResolvedProperty, 0, len(a.entries))

	for p := range a.All() {
		val, _, err := r.property(p.name, nil)
		if err != nil {
			return nil, WrapError(err).With(slog.String("name", p.name))
		}

		out = append(out, ResolvedProperty{
			Name:   p.name,
			Raw:    p.Value(),
			Value:  val,
			Group:  p.handle.group,
			Handle: p.handle,
		})
	}

	return out, nil
}

// Map returns the expanded value of every effective property.
func (a *ActiveGroup) Map() (map[string]string, error) {
	all, err := a.ResolveAll()
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(all))
	for _, p := range all {
		out[p.Name] = p.Value
	}

	return out, nil
}

// SearchPath splits the expanded value of a semicolon-delimited list
// property such as DCC_UnitSearchPath. Empty and repeated elements are
// dropped.
func (a *ActiveGroup) SearchPath(name string) ([]string, error) {
	val, err := a.Resolve(name)
	if err != nil {
		return nil, err
	}

	return SplitList(val), nil
}

// SplitList splits a semicolon-delimited list, trimming blanks and
// dropping empty and repeated elements.
func SplitList(s string) []string {
	var out []string

	seen := make(map[string]struct{})

	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		if _, ok := seen[item]; ok {
			continue
		}

		seen[item] = struct{}{}
		out = append(out, item)
	}

	return out
}

func (a *ActiveGroup) resolver(empty bool) *resolver {
	return &resolver{
		view:     a,
		env:      a.ctx.env,
		vars:     a.vars,
		maxDepth: a.ctx.maxDepth,
		fallback: a.ctx.fallback,
		empty:    empty,
	}
}

// holds evaluates a condition against the view as built so far, with
// unknown references expanding to nothing.
func (a *ActiveGroup) holds(cond string) (bool, error) {
	c, err := ParseCondition(cond)
	if err != nil {
		return false, err
	}

	return c.Evaluate(a.resolver(true).expand)
}

func (a *ActiveGroup) add(p *Property) {
	key := strings.ToUpper(p.name)

	if i, ok := a.index[key]; ok {
		a.entries[i].defs = append(a.entries[i].defs, p)

		return
	}

	a.index[key] = len(a.entries)
	a.entries = append(a.entries, &entry{defs: []*Property{p}})
}

// definition returns the definition of key at the given layer, or the
// effective one for a negative layer.
func (a *ActiveGroup) definition(key string, layer int) (*Property, int, bool) {
	if a == nil {
		return nil, 0, false
	}

	i, ok := a.index[key]
	if !ok {
		return nil, 0, false
	}

	defs := a.entries[i].defs
	if layer < 0 || layer >= len(defs) {
		layer = len(defs) - 1
	}

	return defs[layer], layer, true
}
