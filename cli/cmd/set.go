package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"

	"github.com/ardnew/dproj/dproj"
	"github.com/ardnew/dproj/log"
)

// Set changes the value of one property and writes the project back.
//
// Only the text of the edited element changes; every other byte of the file
// is preserved. The file is replaced atomically, and not at all if it was
// modified on disk after it was read.
type Set struct {
	Group  int    `default:"-1" help:"Index of the property group to edit. Defaults to the group of the effective definition."`
	DryRun bool   `             help:"Print the edited project instead of writing it."                                          short:"n"`
	Name   string `arg:""       help:"Property name."                                                                                     name:"name"`
	Value  string `arg:""       help:"New value."                                                                                         name:"value"`
}

// Run executes the set command.
func (c *Set) Run(ctx context.Context, g *Globals) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	path, err := g.projectPath()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return dproj.ErrReadInput.Wrap(err).With(slog.String("path", path))
	}

	doc, err := dproj.Parse(ctx, data, dproj.WithLogger(log.Default()))
	if err != nil {
		return dproj.WrapError(err).With(slog.String("path", path))
	}

	fingerprint := doc.Fingerprint()

	if err := c.apply(doc, g); err != nil {
		return err
	}

	if c.DryRun {
		_, err = doc.WriteTo(outputFrom(ctx))

		return err
	}

	if err := writeProject(path, doc, fingerprint); err != nil {
		return err
	}

	log.DebugContext(ctx, "property updated",
		slog.String("path", path),
		slog.String("name", c.Name),
		slog.Int("bytes", len(doc.Bytes())),
	)

	return nil
}

func (c *Set) apply(doc *dproj.Document, g *Globals) error {
	if c.Group >= 0 {
		return doc.SetProperty(c.Group, c.Name, c.Value)
	}

	dc, err := g.builder().Build(doc)
	if err != nil {
		return err
	}

	a, err := g.activeFor(dc)
	if err != nil {
		return err
	}

	p, ok := a.Get(c.Name)
	if !ok {
		return notFound(c.Name, a.Names())
	}

	return doc.SetPropertyValue(p.Handle(), c.Value)
}

// writeProject replaces the file at path with the contents of doc through a
// temporary file in the same directory. It fails with ErrProjectChanged if
// the file no longer hashes to fingerprint.
func writeProject(path string, doc *dproj.Document, fingerprint uint64) (err error) {
	info, err := os.Stat(path)
	if err != nil {
		return ErrWriteProject.Wrap(err).With(slog.String("path", path))
	}

	current, err := os.ReadFile(path)
	if err != nil {
		return ErrWriteProject.Wrap(err).With(slog.String("path", path))
	}

	if xxh3.Hash(current) != fingerprint {
		return ErrProjectChanged.With(slog.String("path", path))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return ErrWriteProject.Wrap(err).With(slog.String("path", path))
	}

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = doc.WriteTo(tmp); err != nil {
		return ErrWriteProject.Wrap(err).With(slog.String("path", tmp.Name()))
	}

	if err = tmp.Sync(); err != nil {
		return ErrWriteProject.Wrap(err).With(slog.String("path", tmp.Name()))
	}

	if err = tmp.Close(); err != nil {
		return ErrWriteProject.Wrap(err).With(slog.String("path", tmp.Name()))
	}

	if err = os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return ErrWriteProject.Wrap(err).With(slog.String("path", tmp.Name()))
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return ErrWriteProject.Wrap(err).With(slog.String("path", path))
	}

	return nil
}
