package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ardnew/dproj/dproj"
)

// Paths prints the elements of a semicolon-delimited list property such as
// a search path, with any unresolved self-reference removed.
type Paths struct {
	Output `embed:""`

	Prepend []string `help:"Directories to place first, removing later duplicates." placeholder:"DIR" sep:"none"`
	Join    bool     `help:"Print a single semicolon-delimited line."               short:"j"`
	Name    string   `arg:"" default:"DCC_UnitSearchPath" help:"List property name." name:"name" optional:""`
}

type pathsView struct {
	Name  string   `json:"name"  toml:"name"  yaml:"name"`
	Paths []string `json:"paths" toml:"paths" yaml:"paths"`
}

// Run executes the paths command.
func (p *Paths) Run(ctx context.Context, g *Globals) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	a, err := g.active(ctx)
	if err != nil {
		return err
	}

	if _, ok := a.Get(p.Name); !ok {
		return notFound(p.Name, a.Names())
	}

	list, err := a.SearchPath(p.Name)
	if err != nil {
		return err
	}

	list = dropReference(list, p.Name)

	if len(p.Prepend) > 0 {
		list = dproj.SplitList(dproj.PrefixList(strings.Join(list, ";"), p.Prepend...))
	}

	view := pathsView{Name: p.Name, Paths: list}

	return p.encode(ctx, outputFrom(ctx), view, func(w io.Writer) error {
		if p.Join {
			_, err := fmt.Fprintln(w, strings.Join(list, ";"))

			return err
		}

		return writeResult(w, list)
	})
}

// dropReference removes the literal $(name) element left by a list property
// that appends to a definition the project never gives.
func dropReference(list []string, name string) []string {
	out := list[:0:0]

	for _, item := range list {
		if ref, ok := strings.CutPrefix(item, "$("); ok {
			if ref, ok := strings.CutSuffix(ref, ")"); ok && strings.EqualFold(ref, name) {
				continue
			}
		}

		out = append(out, item)
	}

	return out
}
