package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/dproj/dproj"
)

// maxSuggestions bounds the names offered when a property is not found.
const maxSuggestions = 3

// Get prints the value of one property.
type Get struct {
	Raw   bool   `help:"Print the value without expanding references."`
	Split bool   `help:"Print a semicolon-delimited value one element per line." short:"s"`
	Name  string `arg:"" help:"Property name." name:"name"`
}

// Run executes the get command.
func (c *Get) Run(ctx context.Context, g *Globals) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	a, err := g.active(ctx)
	if err != nil {
		return err
	}

	var val string

	if c.Raw {
		v, ok := a.Value(c.Name)
		if !ok {
			return notFound(c.Name, a.Names())
		}

		val = v
	} else {
		val, err = a.Resolve(c.Name)
		if errors.Is(err, dproj.ErrPropertyNotFound) {
			return notFound(c.Name, a.Names())
		}

		if err != nil {
			return err
		}
	}

	w := outputFrom(ctx)

	if !c.Split {
		_, err = fmt.Fprintln(w, val)

		return err
	}

	for _, item := range dproj.SplitList(val) {
		if _, err := fmt.Fprintln(w, item); err != nil {
			return err
		}
	}

	return nil
}

// suggest returns up to maxSuggestions of names that fuzzily match name,
// best first. Matching ignores case.
func suggest(name string, names []string) []string {
	folded := make([]string, len(names))
	for i, n := range names {
		folded[i] = strings.ToLower(n)
	}

	matches := fuzzy.Find(strings.ToLower(name), folded)

	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}

		out = append(out, names[m.Index])
	}

	return out
}
