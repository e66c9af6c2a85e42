package dproj

import (
	"bytes"
	"context"
	"io"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/dproj/log"
)

// NodeKind classifies a top-level element of the project root.
type NodeKind int

const (
	NodeOther NodeKind = iota
	NodePropertyGroup
	NodeItemGroup
	NodeImport
	NodeExtensions
)

func (k NodeKind) String() string {
	switch k {
	case NodePropertyGroup:
		return "PropertyGroup"
	case NodeItemGroup:
		return "ItemGroup"
	case NodeImport:
		return "Import"
	case NodeExtensions:
		return "ProjectExtensions"
	default:
		return "Other"
	}
}

// Span is a half-open byte range [Start, End) of the source buffer.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by s.
func (s Span) Len() int { return s.End - s.Start }

// Node is a direct child element of the project root.
type Node struct {
	Kind NodeKind
	Name string
	Span Span
}

// documentSeq issues identities that distinguish every parsed Document,
// including re-parses of identical source.
var documentSeq atomic.Uint64

// Document is a lossless representation of a project file.
//
// The source buffer is never modified. Edits are recorded per property and
// applied when the document is serialized.
type Document struct {
	id      uint64
	src     []byte
	root    string
	nodes   []Node
	groups  []*PropertyGroup
	items   []*ItemGroup
	imports []Import
	ext     *Extensions
	logger  log.Logger
}

// Option configures a Document at parse time.
type Option func(*Document)

// WithLogger sets the logger used for trace output while parsing.
func WithLogger(logger log.Logger) Option {
	return func(d *Document) { d.logger = logger }
}

// Parse reads a project document from data.
//
// The returned Document retains data; callers must not modify it afterward.
func Parse(ctx context.Context, data []byte, opts ...Option) (*Document, error) {
	doc := &Document{
		id:  documentSeq.Add(1),
		src: data,
	}

	for _, opt := range opts {
		opt(doc)
	}

	if err := newScanner(doc).scan(); err != nil {
		return nil, err
	}

	doc.logger.TraceContext(
		ctx,
		"parse complete",
		slog.Int("bytes", len(data)),
		slog.Int("nodes", len(doc.nodes)),
		slog.Int("property_groups", len(doc.groups)),
	)

	return doc, nil
}

// ParseReader reads all of r and parses it as a project document.
func ParseReader(
	ctx context.Context,
	r io.Reader,
	opts ...Option,
) (*Document, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	return Parse(ctx, data, opts...)
}

// FromFile opens the file at path and parses it as a project document.
func FromFile(ctx context.Context, path string, opts ...Option) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("path", path))
	}
	defer f.Close()

	doc, err := ParseReader(ctx, f, opts...)
	if err != nil {
		return nil, WrapError(err).With(slog.String("path", path))
	}

	return doc, nil
}

// Root returns the local name of the root element.
func (d *Document) Root() string { return d.root }

// Nodes returns an iterator over the direct children of the root element.
func (d *Document) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range d.nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// PropertyGroups returns an iterator over all property groups in document
// order.
func (d *Document) PropertyGroups() iter.Seq[*PropertyGroup] {
	return func(yield func(*PropertyGroup) bool) {
		for _, g := range d.groups {
			if !yield(g) {
				return
			}
		}
	}
}

// PropertyGroup returns the property group at index i.
func (d *Document) PropertyGroup(i int) (*PropertyGroup, bool) {
	if i < 0 || i >= len(d.groups) {
		return nil, false
	}

	return d.groups[i], true
}

// NumPropertyGroups returns the number of property groups.
func (d *Document) NumPropertyGroups() int { return len(d.groups) }

// Source returns the bytes the document was parsed from.
func (d *Document) Source() []byte { return d.src }

// Modified reports whether any property value differs from the source.
func (d *Document) Modified() bool {
	for _, g := range d.groups {
		for _, p := range g.props {
			if p.edit != nil {
				return true
			}
		}
	}

	return false
}

// Bytes serializes the document. Without edits the result equals Source.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer

	buf.Grow(len(d.src))

	_, _ = d.WriteTo(&buf)

	return buf.Bytes()
}

// WriteTo writes the serialized document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var (
		total int64
		pos   int
	)

	write := func(b []byte) error {
		n, err := w.Write(b)
		total += int64(n)

		return err
	}

	for _, g := range d.groups {
		for _, p := range g.props {
			if p.edit == nil {
				continue
			}

			if err := write(d.src[pos:p.edit.span.Start]); err != nil {
				return total, err
			}

			if err := write(p.edit.text); err != nil {
				return total, err
			}

			pos = p.edit.span.End
		}
	}

	err := write(d.src[pos:])

	return total, err
}

// Fingerprint returns a hash of the serialized document.
func (d *Document) Fingerprint() uint64 { return xxh3.Hash(d.Bytes()) }

// PropertyGroup is a <PropertyGroup> element and its property children.
type PropertyGroup struct {
	index     int
	condition string
	span      Span
	props     []*Property
}

// Index returns the position of g among the document's property groups.
func (g *PropertyGroup) Index() int { return g.index }

// Condition returns the group's Condition attribute, or "" if absent.
func (g *PropertyGroup) Condition() string { return g.condition }

// Span returns the byte range of the whole element.
func (g *PropertyGroup) Span() Span { return g.span }

// Len returns the number of properties in g.
func (g *PropertyGroup) Len() int { return len(g.props) }

// Property returns the property at index i.
func (g *PropertyGroup) Property(i int) (*Property, bool) {
	if i < 0 || i >= len(g.props) {
		return nil, false
	}

	return g.props[i], true
}

// All returns an iterator over the properties of g in document order.
func (g *PropertyGroup) All() iter.Seq[*Property] {
	return func(yield func(*Property) bool) {
		for _, p := range g.props {
			if !yield(p) {
				return
			}
		}
	}
}

// Get returns the property with the given name. Names compare
// case-insensitively and the last definition in the group wins.
func (g *PropertyGroup) Get(name string) (*Property, bool) {
	for i := len(g.props) - 1; i >= 0; i-- {
		if strings.EqualFold(g.props[i].name, name) {
			return g.props[i], true
		}
	}

	return nil, false
}

// Property is a single child element of a property group.
type Property struct {
	handle    Handle
	name      string
	qname     string
	value     string
	condition string
	elem      Span
	content   Span
	closed    bool
	mixed     bool
	edit      *edit
}

// edit replaces span of the source with text on serialization.
type edit struct {
	span  Span
	text  []byte
	value string
}

// Name returns the element's local name.
func (p *Property) Name() string { return p.name }

// Value returns the raw, unresolved value text: the element's own character
// data, excluding that of child elements. After a successful
// [Document.SetPropertyValue] it returns the new value.
func (p *Property) Value() string {
	if p.edit != nil {
		return p.edit.value
	}

	return p.value
}

// Condition returns the property's own Condition attribute, or "".
func (p *Property) Condition() string { return p.condition }

// Handle returns the position descriptor used to mutate p.
func (p *Property) Handle() Handle { return p.handle }

// Span returns the byte range of the value text in the source. It is empty
// for self-closing elements.
func (p *Property) Span() Span { return p.content }

// Element returns the byte range of the whole element in the source.
func (p *Property) Element() Span { return p.elem }

// SelfClosing reports whether the element was written as <Name/>.
func (p *Property) SelfClosing() bool { return p.closed }

// Mixed reports whether the element holds child elements, comments, or
// processing instructions besides its text. Such properties cannot be set.
func (p *Property) Mixed() bool { return p.mixed }

// Handle is a non-owning reference to a property of a specific Document.
// It stays valid across mutations of that document and becomes stale for
// any other document, including a re-parse of the same bytes.
type Handle struct {
	doc   uint64
	group int
	index int
	name  string
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.doc == 0 }

// Group returns the index of the property group h refers to.
func (h Handle) Group() int { return h.group }

// Name returns the property name h refers to.
func (h Handle) Name() string { return h.name }

func (h Handle) String() string {
	return "PropertyGroup[" + strconv.Itoa(h.group) + "]." + h.name +
		"[" + strconv.Itoa(h.index) + "]"
}

// LogValue implements slog.LogValuer.
func (h Handle) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("group", h.group),
		slog.Int("index", h.index),
		slog.String("name", h.name),
	)
}
