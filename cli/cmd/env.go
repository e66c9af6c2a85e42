package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/ardnew/dproj/env"
)

// Env prints the environment store built from the process environment,
// rsvars scripts, dotenv files, and defines. It does not read a project.
type Env struct {
	Output `embed:""`

	Keys []string `arg:"" help:"Variables to print (default all)." name:"key" optional:""`
}

// Run executes the env command.
func (e *Env) Run(ctx context.Context, g *Globals) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	store, err := g.builder().Env()
	if err != nil {
		return err
	}

	if len(e.Keys) > 0 {
		sel := env.New()

		for _, key := range e.Keys {
			if val, ok := store.Lookup(key); ok {
				sel.Override(key, val)
			}
		}

		store = sel
	}

	return e.encode(ctx, outputFrom(ctx), store.Map(), func(w io.Writer) error {
		for key, val := range store.All() {
			if _, err := fmt.Fprintf(w, "%s=%s\n", key, val); err != nil {
				return err
			}
		}

		return nil
	})
}
