package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/ardnew/dproj/dproj"
	"github.com/ardnew/dproj/log"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type outputKey struct{}

// WithOutput returns a new context.Context whose commands write their
// results to w instead of standard output.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey{}, w)
}

func outputFrom(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey{}).(io.Writer); ok && w != nil {
		return w
	}

	return os.Stdout
}

// Globals holds the flags shared by every command that reads a project.
type Globals struct {
	Project  string            `help:"Project file (.dproj). Defaults to the only one in the working directory." placeholder:"FILE"      short:"p" type:"path"`
	Rsvars   []string          `help:"rsvars.bat script(s) applied over the process environment."             placeholder:"FILE"      short:"r" type:"existingfile"`
	EnvFile  []string          `help:"dotenv file(s) of environment overrides."                                placeholder:"FILE"                type:"existingfile"`
	Define   map[string]string `help:"Override an environment variable."                                       placeholder:"KEY=VALUE" short:"D" mapsep:"none"`
	Config   string            `help:"Build configuration. Defaults to the project's Config property."         placeholder:"NAME"      short:"c"`
	Platform string            `help:"Target platform. Defaults to the project's Platform property."           placeholder:"NAME"      short:"P"`

	Unscoped    bool `help:"Merge only the property groups without a condition."`
	CleanEnv    bool `help:"Ignore the process environment."`
	EnvFallback bool `default:"true" help:"Resolve undefined property references from the environment." negatable:""`
	MaxDepth    int  `default:"64"   help:"Maximum nesting of property references."`
}

// projectGlob matches project files when --project is not given.
const projectGlob = "*.dproj"

// projectPath returns the project file to read.
func (g *Globals) projectPath() (string, error) {
	if g.Project != "" {
		return g.Project, nil
	}

	matches, err := filepath.Glob(projectGlob)
	if err != nil {
		return "", ErrNoProject.Wrap(err)
	}

	switch len(matches) {
	case 0:
		return "", ErrNoProject
	case 1:
		return matches[0], nil
	default:
		return "", ErrAmbiguousProject.With(slog.Any("candidates", matches))
	}
}

// builder returns the environment layering selected by the flags. Scripts
// and dotenv files named more than once are applied once.
func (g *Globals) builder() *dproj.Builder {
	b := dproj.NewBuilder().
		WithLogger(log.Default()).
		WithMaxDepth(g.MaxDepth).
		WithEnvironmentFallback(g.EnvFallback)

	if g.CleanEnv {
		b.WithEnviron(nil)
	}

	for _, path := range uniqueFiles(g.Rsvars) {
		b.WithRsvarsFile(path)
	}

	for _, path := range uniqueFiles(g.EnvFile) {
		b.WithOverridesFile(path)
	}

	return b.WithOverrides(g.Define)
}

// load reads the project and builds its resolution context.
func (g *Globals) load(ctx context.Context) (*dproj.Context, error) {
	path, err := g.projectPath()
	if err != nil {
		return nil, err
	}

	doc, err := dproj.FromFile(ctx, path, dproj.WithLogger(log.Default()))
	if err != nil {
		return nil, err
	}

	return g.builder().Build(doc)
}

// active returns the merged property view selected by the flags. A missing
// configuration or platform is taken from the project defaults.
func (g *Globals) active(ctx context.Context) (*dproj.ActiveGroup, error) {
	c, err := g.load(ctx)
	if err != nil {
		return nil, err
	}

	return g.activeFor(c)
}

func (g *Globals) activeFor(c *dproj.Context) (*dproj.ActiveGroup, error) {
	if g.Unscoped {
		return c.Unscoped()
	}

	config, platform := g.Config, g.Platform

	if config == "" || platform == "" {
		defConfig, defPlatform, err := c.DefaultConfiguration()
		if err != nil {
			return nil, err
		}

		if config == "" {
			config = defConfig
		}

		if platform == "" {
			platform = defPlatform
		}
	}

	return c.ActivePropertyGroupFor(config, platform)
}

// uniqueFiles returns paths without the entries naming a file already
// listed, comparing the files themselves so that symlinks and relative
// paths are recognized. Paths that cannot be inspected are kept for the
// reader to report.
func uniqueFiles(paths []string) []string {
	out := make([]string, 0, len(paths))
	seen := make([]os.FileInfo, 0, len(paths))

outer:
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			out = append(out, path)

			continue
		}

		for _, prev := range seen {
			if os.SameFile(prev, info) {
				continue outer
			}
		}

		seen = append(seen, info)
		out = append(out, path)
	}

	return out
}
