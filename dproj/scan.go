package dproj

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type frameKind int

const (
	frameOther frameKind = iota
	frameRoot
	framePropertyGroup
	frameProperty
	frameItemGroup
	frameItem
	frameMetadata
	frameImport
	frameExtensions
	frameExtensionField
	frameBorlandProject
	framePlatforms
	framePlatform
)

// frame is an open element on the scanner stack.
type frame struct {
	text   *strings.Builder
	name   string
	qname  string
	cond   string
	ref    string
	kind   frameKind
	start  int
	tagEnd int
	mixed  bool
}

// scanner builds a Document from the token stream of encoding/xml.
//
// Offsets reported by the decoder delimit every token, so the byte span of
// each element is known without re-encoding anything.
type scanner struct {
	doc       *Document
	dec       *xml.Decoder
	group     *PropertyGroup
	itemGroup *ItemGroup
	item      *Item
	stack     []*frame
	base      int
	rootDone  bool
}

func newScanner(doc *Document) *scanner {
	base := 0
	if bytes.HasPrefix(doc.src, utf8BOM) {
		base = len(utf8BOM)
	}

	dec := xml.NewDecoder(bytes.NewReader(doc.src[base:]))
	dec.Strict = true

	return &scanner{doc: doc, dec: dec, base: base}
}

func (s *scanner) scan() error {
	if off := invalidUTF8(s.doc.src[s.base:]); off >= 0 {
		return s.errorAt(s.base+off, "invalid UTF-8")
	}

	for {
		start := s.offset()

		tok, err := s.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return s.syntaxError(err)
		}

		end := s.offset()

		switch t := tok.(type) {
		case xml.StartElement:
			if err := s.startElement(t, start, end); err != nil {
				return err
			}

		case xml.EndElement:
			s.endElement(start, end)

		case xml.CharData:
			if err := s.charData(t, start); err != nil {
				return err
			}

		case xml.Comment, xml.ProcInst, xml.Directive:
			if f := s.top(); f != nil && f.kind == frameProperty {
				f.mixed = true
			}
		}
	}

	if len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]

		return s.errorAt(top.start, "unterminated element <"+top.qname+">")
	}

	if !s.rootDone {
		return s.errorAt(len(s.doc.src), "no root element")
	}

	return nil
}

func (s *scanner) offset() int { return s.base + int(s.dec.InputOffset()) }

func (s *scanner) top() *frame {
	if len(s.stack) == 0 {
		return nil
	}

	return s.stack[len(s.stack)-1]
}

func (s *scanner) startElement(t xml.StartElement, start, end int) error {
	f := &frame{
		name:   t.Name.Local,
		qname:  rawName(s.doc.src[start:end]),
		cond:   attr(t, "Condition"),
		start:  start,
		tagEnd: end,
	}

	parent := s.top()

	if parent != nil && parent.kind == frameProperty {
		parent.mixed = true
	}

	switch {
	case parent == nil:
		if s.rootDone {
			return s.errorAt(start, "multiple root elements")
		}

		f.kind = frameRoot
		s.doc.root = f.name

	case parent.kind == frameRoot:
		switch f.name {
		case "PropertyGroup":
			f.kind = framePropertyGroup
			s.group = &PropertyGroup{index: len(s.doc.groups), condition: f.cond}

		case "ItemGroup":
			f.kind = frameItemGroup
			s.itemGroup = &ItemGroup{index: len(s.doc.items), condition: f.cond}

		case "Import":
			f.kind = frameImport
			f.ref = attr(t, "Project")

		case "ProjectExtensions":
			f.kind = frameExtensions
			s.doc.ext = &Extensions{}
		}

	case parent.kind == framePropertyGroup:
		f.kind = frameProperty
		f.text = new(strings.Builder)

	case parent.kind == frameItemGroup:
		f.kind = frameItem
		s.item = &Item{
			Type:      f.name,
			Include:   attr(t, "Include"),
			Condition: f.cond,
		}

	case parent.kind == frameItem:
		f.kind = frameMetadata
		f.text = new(strings.Builder)

	case parent.kind == frameExtensions:
		if f.name == "BorlandProject" {
			f.kind = frameBorlandProject
		} else {
			f.kind = frameExtensionField
			f.text = new(strings.Builder)
		}

	case parent.kind == frameBorlandProject && f.name == "Platforms":
		f.kind = framePlatforms

	case parent.kind == framePlatforms && f.name == "Platform":
		f.kind = framePlatform
		f.ref = attr(t, "value")
		f.text = new(strings.Builder)
	}

	s.stack = append(s.stack, f)

	return nil
}

func (s *scanner) endElement(start, end int) {
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]

	elem := Span{Start: f.start, End: end}

	switch f.kind {
	case frameRoot:
		s.rootDone = true

	case framePropertyGroup:
		s.group.span = elem
		s.doc.groups = append(s.doc.groups, s.group)
		s.group = nil

	case frameProperty:
		g := s.group
		p := &Property{
			name:      f.name,
			qname:     f.qname,
			value:     f.text.String(),
			condition: f.cond,
			elem:      elem,
			content:   Span{Start: f.tagEnd, End: start},
			closed:    start == end,
			mixed:     f.mixed,
		}
		p.handle = Handle{
			doc:   s.doc.id,
			group: g.index,
			index: len(g.props),
			name:  f.name,
		}
		g.props = append(g.props, p)

	case frameItemGroup:
		s.itemGroup.span = elem
		s.doc.items = append(s.doc.items, s.itemGroup)
		s.itemGroup = nil

	case frameItem:
		s.item.Span = elem
		s.itemGroup.items = append(s.itemGroup.items, *s.item)
		s.item = nil

	case frameMetadata:
		s.item.Metadata = append(s.item.Metadata, Metadata{
			Name:  f.name,
			Value: f.text.String(),
		})

	case frameImport:
		s.doc.imports = append(s.doc.imports, Import{
			Project:   f.ref,
			Condition: f.cond,
			Span:      elem,
		})

	case frameExtensions:
		s.doc.ext.Span = elem

	case frameExtensionField:
		text := strings.TrimSpace(f.text.String())

		switch f.name {
		case "Borland.Personality":
			s.doc.ext.Personality = text
		case "Borland.ProjectType":
			s.doc.ext.ProjectType = text
		case "ProjectFileVersion":
			s.doc.ext.ProjectFileVersion = text
		}

	case framePlatform:
		s.doc.ext.Platforms = append(s.doc.ext.Platforms, TargetPlatform{
			Name:   f.ref,
			Active: strings.EqualFold(strings.TrimSpace(f.text.String()), "true"),
		})
	}

	if len(s.stack) == 1 {
		s.doc.nodes = append(s.doc.nodes, Node{
			Kind: nodeKind(f.kind),
			Name: f.name,
			Span: elem,
		})
	}
}

func (s *scanner) charData(t xml.CharData, start int) error {
	if len(s.stack) == 0 {
		if len(bytes.TrimSpace(t)) > 0 {
			return s.errorAt(start, "text outside root element")
		}

		return nil
	}

	if f := s.top(); f.text != nil {
		f.text.Write(t)
	}

	return nil
}

func (s *scanner) syntaxError(err error) error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return ErrParse.Wrap(err).With(slog.Int("line", se.Line))
	}

	return ErrParse.Wrap(err)
}

func (s *scanner) errorAt(off int, msg string) error {
	return ErrParse.Wrap(errors.New(msg)).With(
		slog.Int("line", 1+bytes.Count(s.doc.src[:off], []byte{'\n'})),
		slog.Int("offset", off),
	)
}

func nodeKind(k frameKind) NodeKind {
	switch k {
	case framePropertyGroup:
		return NodePropertyGroup
	case frameItemGroup:
		return NodeItemGroup
	case frameImport:
		return NodeImport
	case frameExtensions:
		return NodeExtensions
	default:
		return NodeOther
	}
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value
		}
	}

	return ""
}

// rawName returns the qualified element name as written in a start tag.
func rawName(tag []byte) string {
	tag = bytes.TrimPrefix(tag, []byte{'<'})

	if i := bytes.IndexAny(tag, " \t\r\n/>"); i >= 0 {
		tag = tag[:i]
	}

	return string(tag)
}

func invalidUTF8(b []byte) int {
	for i := 0; i < len(b); {
		r, n := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && n <= 1 {
			return i
		}

		i += n
	}

	return -1
}
