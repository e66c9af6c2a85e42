package cmd

import (
	"context"

	"github.com/ardnew/dproj/cli/cmd/repl"
	"github.com/ardnew/dproj/log"
)

// Repl starts an interactive shell that evaluates queries over the
// resolved properties.
type Repl struct{}

// Run executes the repl command.
func (Repl) Run(ctx context.Context, g *Globals) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	a, err := g.active(ctx)
	if err != nil {
		return err
	}

	cacheDir := ""
	if ktx := kongContextFrom(ctx); ktx != nil {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	return repl.Run(ctx, a, cacheDir, log.Default())
}
