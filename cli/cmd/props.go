package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/dproj/dproj"
)

// Props prints the resolved properties of the selected configuration.
type Props struct {
	Output `embed:""`

	Raw   bool     `help:"Print values without expanding references."`
	Names []string `arg:"" help:"Property names to print (default all)." name:"name" optional:""`
}

type propsView struct {
	Config     string            `json:"config"     toml:"config"     yaml:"config"`
	Platform   string            `json:"platform"   toml:"platform"   yaml:"platform"`
	Properties map[string]string `json:"properties" toml:"properties" yaml:"properties"`
}

// Run executes the props command.
func (p *Props) Run(ctx context.Context, g *Globals) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	a, err := g.active(ctx)
	if err != nil {
		return err
	}

	all, err := p.selected(a)
	if err != nil {
		return err
	}

	view := propsView{
		Config:     a.Configuration(),
		Platform:   a.Platform(),
		Properties: make(map[string]string, len(all)),
	}

	for _, rp := range all {
		view.Properties[rp.Name] = p.value(rp)
	}

	return p.encode(ctx, outputFrom(ctx), view, func(w io.Writer) error {
		for _, rp := range all {
			if _, err := fmt.Fprintf(w, "%s=%s\n", rp.Name, p.value(rp)); err != nil {
				return err
			}
		}

		return nil
	})
}

func (p *Props) value(rp dproj.ResolvedProperty) string {
	if p.Raw {
		return rp.Raw
	}

	return rp.Value
}

// selected resolves every property, or only those named, in the order
// requested.
func (p *Props) selected(a *dproj.ActiveGroup) ([]dproj.ResolvedProperty, error) {
	all, err := a.ResolveAll()
	if err != nil {
		return nil, err
	}

	if len(p.Names) == 0 {
		return all, nil
	}

	out := make([]dproj.ResolvedProperty, 0, len(p.Names))

	for _, name := range p.Names {
		i := slices.IndexFunc(all, func(rp dproj.ResolvedProperty) bool {
			return strings.EqualFold(rp.Name, name)
		})
		if i < 0 {
			return nil, notFound(name, a.Names())
		}

		out = append(out, all[i])
	}

	return out, nil
}

// notFound returns ErrPropertyNotFound with the closest of names attached.
func notFound(name string, names []string) error {
	err := ErrPropertyNotFound.With(slog.String("name", name))

	if s := suggest(name, names); len(s) > 0 {
		err = err.With(slog.Any("suggestions", s))
	}

	return err
}
