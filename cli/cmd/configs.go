package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ardnew/dproj/dproj"
)

// Configs prints the build configurations, platforms, and imports declared
// by the project, along with its default selection.
type Configs struct {
	Output `embed:""`
}

type configsView struct {
	Config         string         `json:"config,omitempty"      toml:"config,omitempty"      yaml:"config,omitempty"`
	Platform       string         `json:"platform,omitempty"    toml:"platform,omitempty"    yaml:"platform,omitempty"`
	MainSource     string         `json:"main_source,omitempty" toml:"main_source,omitempty" yaml:"main_source,omitempty"`
	Configurations []configView   `json:"configurations"        toml:"configurations"        yaml:"configurations"`
	Platforms      []platformView `json:"platforms"             toml:"platforms"             yaml:"platforms"`
	Imports        []importView   `json:"imports"               toml:"imports"               yaml:"imports"`
}

type configView struct {
	Name   string `json:"name"             toml:"name"             yaml:"name"`
	Key    string `json:"key,omitempty"    toml:"key,omitempty"    yaml:"key,omitempty"`
	Parent string `json:"parent,omitempty" toml:"parent,omitempty" yaml:"parent,omitempty"`
}

type platformView struct {
	Name   string `json:"name"   toml:"name"   yaml:"name"`
	Active bool   `json:"active" toml:"active" yaml:"active"`
}

type importView struct {
	Project   string `json:"project"             toml:"project"             yaml:"project"`
	Condition string `json:"condition,omitempty" toml:"condition,omitempty" yaml:"condition,omitempty"`
}

// Run executes the configs command.
func (c *Configs) Run(ctx context.Context, g *Globals) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	dc, err := g.load(ctx)
	if err != nil {
		return err
	}

	doc := dc.Document()

	var view configsView

	// A project without defaults still lists what it declares.
	view.Config, view.Platform, _ = dc.DefaultConfiguration()
	view.MainSource = mainSource(dc)

	for _, bc := range doc.BuildConfigurations() {
		view.Configurations = append(view.Configurations,
			configView{Name: bc.Name, Key: bc.Key, Parent: bc.Parent})
	}

	if ext, ok := doc.Extensions(); ok {
		for _, p := range ext.Platforms {
			view.Platforms = append(view.Platforms,
				platformView{Name: p.Name, Active: p.Active})
		}
	}

	for _, imp := range doc.Imports() {
		view.Imports = append(view.Imports,
			importView{Project: imp.Project, Condition: imp.Condition})
	}

	return c.encode(ctx, outputFrom(ctx), view, view.writeText)
}

// mainSource returns the main source file named by the project, expanded
// against the unconditional property groups where possible.
func mainSource(dc *dproj.Context) string {
	src, ok := dc.Document().MainSource()
	if !ok {
		return ""
	}

	u, err := dc.Unscoped()
	if err != nil {
		return src
	}

	if s, err := u.Expand(src); err == nil {
		return s
	}

	return src
}

func (v configsView) writeText(w io.Writer) error {
	var b strings.Builder

	if v.Config != "" {
		fmt.Fprintf(&b, "default: %s|%s\n", v.Config, v.Platform)
	}

	if v.MainSource != "" {
		fmt.Fprintf(&b, "main source: %s\n", v.MainSource)
	}

	b.WriteString("configurations:\n")

	for _, c := range v.Configurations {
		fmt.Fprintf(&b, "  %s", c.Name)

		if c.Key != "" {
			fmt.Fprintf(&b, " (%s)", c.Key)
		}

		if c.Parent != "" {
			fmt.Fprintf(&b, " < %s", c.Parent)
		}

		b.WriteByte('\n')
	}

	b.WriteString("platforms:\n")

	for _, p := range v.Platforms {
		mark := " "
		if p.Active {
			mark = "*"
		}

		fmt.Fprintf(&b, " %s%s\n", mark, p.Name)
	}

	b.WriteString("imports:\n")

	for _, imp := range v.Imports {
		fmt.Fprintf(&b, "  %s\n", imp.Project)
	}

	_, err := io.WriteString(w, b.String())

	return err
}
