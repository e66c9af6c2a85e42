package dproj

import (
	"iter"
	"strings"
)

// ItemGroup is an <ItemGroup> element.
type ItemGroup struct {
	index     int
	condition string
	span      Span
	items     []Item
}

// Index returns the position of g among the document's item groups.
func (g *ItemGroup) Index() int { return g.index }

// Condition returns the group's Condition attribute, or "" if absent.
func (g *ItemGroup) Condition() string { return g.condition }

// Span returns the byte range of the whole element.
func (g *ItemGroup) Span() Span { return g.span }

// All returns an iterator over the items of g in document order.
func (g *ItemGroup) All() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, it := range g.items {
			if !yield(it) {
				return
			}
		}
	}
}

// Item is a child of an item group, e.g. <DCCReference Include="Unit1.pas"/>.
type Item struct {
	Type      string
	Include   string
	Condition string
	Metadata  []Metadata
	Span      Span
}

// Metadata is a child element of an item.
type Metadata struct {
	Name  string
	Value string
}

// Meta returns the value of the named metadata element.
func (it Item) Meta(name string) (string, bool) {
	for i := len(it.Metadata) - 1; i >= 0; i-- {
		if strings.EqualFold(it.Metadata[i].Name, name) {
			return it.Metadata[i].Value, true
		}
	}

	return "", false
}

// Import is an <Import> element.
type Import struct {
	Project   string
	Condition string
	Span      Span
}

// Extensions holds the fields read from <ProjectExtensions>.
type Extensions struct {
	Personality        string
	ProjectType        string
	ProjectFileVersion string
	Platforms          []TargetPlatform
	Span               Span
}

// TargetPlatform is a <Platform value="Win32">True</Platform> entry of the
// BorlandProject extension.
type TargetPlatform struct {
	Name   string
	Active bool
}

// BuildConfiguration is a <BuildConfiguration> item. Key names the
// variable set to "true" when the configuration or one of its descendants
// is selected. Parent is the Include name of the parent configuration.
type BuildConfiguration struct {
	Name   string
	Key    string
	Parent string
}

// ItemGroups returns an iterator over all item groups in document order.
func (d *Document) ItemGroups() iter.Seq[*ItemGroup] {
	return func(yield func(*ItemGroup) bool) {
		for _, g := range d.items {
			if !yield(g) {
				return
			}
		}
	}
}

// Items returns an iterator over every item of the given type across all
// item groups. An empty type matches all items.
func (d *Document) Items(typ string) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, g := range d.items {
			for _, it := range g.items {
				if typ != "" && !strings.EqualFold(it.Type, typ) {
					continue
				}

				if !yield(it) {
					return
				}
			}
		}
	}
}

// Imports returns the <Import> elements in document order.
func (d *Document) Imports() []Import {
	return append([]Import(nil), d.imports...)
}

// Extensions returns the parsed <ProjectExtensions>, if present.
func (d *Document) Extensions() (Extensions, bool) {
	if d.ext == nil {
		return Extensions{}, false
	}

	ext := *d.ext
	ext.Platforms = append([]TargetPlatform(nil), d.ext.Platforms...)

	return ext, true
}

// MainSource returns the Include of the first DelphiCompile item, which
// names the project's main source file.
func (d *Document) MainSource() (string, bool) {
	for it := range d.Items("DelphiCompile") {
		return it.Include, true
	}

	return "", false
}

// BuildConfigurations returns the declared build configurations.
func (d *Document) BuildConfigurations() []BuildConfiguration {
	var out []BuildConfiguration

	for it := range d.Items("BuildConfiguration") {
		key, _ := it.Meta("Key")
		parent, _ := it.Meta("CfgParent")

		out = append(out, BuildConfiguration{
			Name:   it.Include,
			Key:    strings.TrimSpace(key),
			Parent: strings.TrimSpace(parent),
		})
	}

	return out
}
