package dproj

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// ErrInvalidValue is returned for values that cannot be stored as XML text.
var ErrInvalidValue = NewError("invalid property value")

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\r", "&#xD;",
)

// SetPropertyValue replaces the value text of the property h refers to.
//
// Only the value span changes in the serialized output. The value is stored
// as given: references are not resolved and XML special characters are
// escaped. A self-closing element is rewritten as <Name>value</Name> with its
// attributes intact. A property with child nodes (see [Property.Mixed]) is
// rejected with [ErrInvalidValue]. On error the document is left unchanged.
func (d *Document) SetPropertyValue(h Handle, value string) error {
	p, err := d.lookup(h)
	if err != nil {
		return err
	}

	if p.mixed {
		return ErrInvalidValue.
			Wrap(errors.New("element has child nodes")).
			With(slog.Any("handle", h))
	}

	if err := validText(value); err != nil {
		return ErrInvalidValue.Wrap(err).With(slog.Any("handle", h))
	}

	p.set(d.src, value)

	return nil
}

// SetProperty sets the value of the last property named name in the
// property group at index group.
func (d *Document) SetProperty(group int, name, value string) error {
	g, ok := d.PropertyGroup(group)
	if !ok {
		return ErrGroupNotFound.With(slog.Int("group", group))
	}

	p, ok := g.Get(name)
	if !ok {
		return ErrPropertyNotFound.With(
			slog.Int("group", group),
			slog.String("name", name),
		)
	}

	return d.SetPropertyValue(p.handle, value)
}

// Resolve returns the live property h refers to.
func (d *Document) Resolve(h Handle) (*Property, error) { return d.lookup(h) }

func (d *Document) lookup(h Handle) (*Property, error) {
	stale := func(reason string) error {
		return ErrStaleReference.Wrap(errors.New(reason)).With(slog.Any("handle", h))
	}

	if h.doc != d.id {
		return nil, stale("handle belongs to another document")
	}

	if h.group < 0 || h.group >= len(d.groups) {
		return nil, stale("property group out of range")
	}

	g := d.groups[h.group]
	if h.index < 0 || h.index >= len(g.props) {
		return nil, stale("property out of range")
	}

	p := g.props[h.index]
	if p.name != h.name {
		return nil, stale("property name mismatch")
	}

	return p, nil
}

func (p *Property) set(src []byte, value string) {
	if value == p.value {
		p.edit = nil

		return
	}

	text := []byte(textEscaper.Replace(value))

	if !p.closed {
		p.edit = &edit{span: p.content, text: text, value: value}

		return
	}

	if value == "" {
		p.edit = nil

		return
	}

	tag := src[p.elem.Start:p.elem.End]
	tag = bytes.TrimSuffix(tag, []byte("/>"))
	tag = bytes.TrimRight(tag, " \t\r\n")

	var buf bytes.Buffer

	buf.Grow(2*len(tag) + len(text) + 3)
	buf.Write(tag)
	buf.WriteByte('>')
	buf.Write(text)
	buf.WriteString("</")
	buf.WriteString(p.qname)
	buf.WriteByte('>')

	p.edit = &edit{span: p.elem, text: buf.Bytes(), value: value}
}

func validText(s string) error {
	for i, r := range s {
		switch {
		case r == utf8.RuneError:
			if _, n := utf8.DecodeRuneInString(s[i:]); n <= 1 {
				return errors.New("invalid UTF-8")
			}

		case r < 0x20 && r != '\t' && r != '\n' && r != '\r',
			r == 0xFFFE, r == 0xFFFF:
			return errors.New("character not allowed in XML text")
		}
	}

	return nil
}
