package cmd

import (
	"context"
	"fmt"
	"io"
)

// Query evaluates an expression over the resolved properties.
//
// The expression sees props (name to expanded value), config, platform, and
// the functions prop, env, expand, split, and mung.prefix.
type Query struct {
	Output `embed:""`

	Expr string `arg:"" help:"Expression to evaluate." name:"expr"`
}

// Run executes the query command.
func (q *Query) Run(ctx context.Context, g *Globals) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	a, err := g.active(ctx)
	if err != nil {
		return err
	}

	out, err := a.Query(ctx, q.Expr)
	if err != nil {
		return err
	}

	return q.encode(ctx, outputFrom(ctx), out, func(w io.Writer) error {
		return writeResult(w, out)
	})
}

// writeResult prints a query result, one element per line for lists.
func writeResult(w io.Writer, v any) error {
	switch v := v.(type) {
	case []string:
		for _, s := range v {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}

		return nil

	case []any:
		for _, s := range v {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
		}

		return nil

	case nil:
		return nil

	default:
		_, err := fmt.Fprintln(w, v)

		return err
	}
}
