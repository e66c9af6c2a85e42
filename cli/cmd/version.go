package cmd

import (
	"context"
	"fmt"

	"github.com/ardnew/dproj/pkg"
)

// Version prints the command name and version.
type Version struct{}

// Run executes the version command.
func (Version) Run(ctx context.Context) error {
	_, err := fmt.Fprintf(outputFrom(ctx), "%s %s\n", pkg.Name, pkg.Version())

	return err
}
