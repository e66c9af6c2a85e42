package dproj

import (
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ardnew/dproj/env"
	"github.com/ardnew/dproj/log"
)

// Context resolves the properties of a Document against an environment
// store. The store is fixed when the Context is built.
//
// A Context performs no writes. It may be used from multiple goroutines as
// long as the Document is not mutated concurrently.
type Context struct {
	doc      *Document
	env      *env.Store
	logger   log.Logger
	maxDepth int
	fallback bool
}

// Document returns the document c resolves.
func (c *Context) Document() *Document { return c.doc }

// Env returns a copy of the environment store.
func (c *Context) Env() *env.Store { return c.env.Clone() }

// Getenv returns the value of an environment variable, ignoring case.
func (c *Context) Getenv(key string) (string, bool) { return c.env.Lookup(key) }

// ActivePropertyGroupFor merges the property groups whose conditions hold
// with Config, Configuration, and Platform bound to config and platform.
//
// Groups are evaluated in document order. Properties merged from earlier
// groups are visible to later conditions, and a property's own Condition
// attribute is honored. When the document declares BuildConfiguration
// items, config must name one of them; the Key of that configuration and of
// each of its ancestors is bound to "true", both alone and suffixed with
// "_" and the platform name.
func (c *Context) ActivePropertyGroupFor(config, platform string) (*ActiveGroup, error) {
	vars, err := c.buildVariables(config, platform, true)
	if err != nil {
		return nil, err
	}

	a := newActiveGroup(c, config, platform, vars)

	for _, g := range c.doc.groups {
		ok, err := a.holds(g.condition)
		if err != nil {
			return nil, WrapError(err).With(slog.Int("group", g.index))
		}

		if !ok {
			continue
		}

		if err := a.merge(g); err != nil {
			return nil, err
		}

		c.logger.Trace(
			"property group matched",
			slog.Int("group", g.index),
			slog.String("condition", g.condition),
		)
	}

	c.logger.Debug(
		"active property group",
		slog.String("config", config),
		slog.String("platform", platform),
		slog.Int("properties", a.Len()),
	)

	return a, nil
}

// ActivePropertyGroup is ActivePropertyGroupFor with the configuration and
// platform returned by DefaultConfiguration.
func (c *Context) ActivePropertyGroup() (*ActiveGroup, error) {
	config, platform, err := c.DefaultConfiguration()
	if err != nil {
		return nil, err
	}

	return c.ActivePropertyGroupFor(config, platform)
}

// Unscoped merges only the groups without a Condition attribute. No
// configuration or platform is bound, so property-level conditions such as
// '$(Config)'=='' hold and the file's defaults are visible.
func (c *Context) Unscoped() (*ActiveGroup, error) {
	a := newActiveGroup(c, "", "", map[string]string{})

	for _, g := range c.doc.groups {
		if strings.TrimSpace(g.condition) != "" {
			continue
		}

		if err := a.merge(g); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// DefaultConfiguration returns the first Config (or Configuration) and
// Platform values found in groups without a Condition attribute. Property
// conditions are ignored.
func (c *Context) DefaultConfiguration() (config, platform string, err error) {
	for _, g := range c.doc.groups {
		if strings.TrimSpace(g.condition) != "" {
			continue
		}

		if config == "" {
			if p, ok := g.Get("Config"); ok {
				config = strings.TrimSpace(p.Value())
			} else if p, ok := g.Get("Configuration"); ok {
				config = strings.TrimSpace(p.Value())
			}
		}

		if platform == "" {
			if p, ok := g.Get("Platform"); ok {
				platform = strings.TrimSpace(p.Value())
			}
		}
	}

	switch {
	case config == "":
		return "", "", ErrNoDefaultConfig.With(slog.String("missing", "Config"))
	case platform == "":
		return "", "", ErrNoDefaultConfig.With(slog.String("missing", "Platform"))
	}

	return config, platform, nil
}

// EvaluateCondition evaluates cond with Config, Configuration, and Platform
// bound to config and platform, plus the keys of any matching build
// configuration. No property values are visible.
func (c *Context) EvaluateCondition(cond, config, platform string) (bool, error) {
	vars, err := c.buildVariables(config, platform, false)
	if err != nil {
		return false, err
	}

	return newActiveGroup(c, config, platform, vars).holds(cond)
}

// merge adds the properties of g whose own condition holds.
func (a *ActiveGroup) merge(g *PropertyGroup) error {
	for _, p := range g.props {
		if p.condition != "" {
			ok, err := a.holds(p.condition)
			if err != nil {
				return WrapError(err).With(
					slog.Int("group", g.index),
					slog.String("property", p.name),
				)
			}

			if !ok {
				continue
			}
		}

		a.add(p)
	}

	return nil
}

func (c *Context) buildVariables(
	config, platform string,
	strict bool,
) (map[string]string, error) {
	vars := map[string]string{
		"CONFIG":        config,
		"CONFIGURATION": config,
		"PLATFORM":      platform,
	}

	cfgs := c.doc.BuildConfigurations()
	if len(cfgs) == 0 {
		return vars, nil
	}

	find := func(name string) (BuildConfiguration, bool) {
		for _, bc := range cfgs {
			if bc.Name == name {
				return bc, true
			}
		}

		for _, bc := range cfgs {
			if strings.EqualFold(bc.Name, name) {
				return bc, true
			}
		}

		return BuildConfiguration{}, false
	}

	bc, ok := find(config)
	if !ok {
		if !strict {
			return vars, nil
		}

		names := make([]string, len(cfgs))
		for i, bc := range cfgs {
			names[i] = bc.Name
		}

		return nil, ErrConfigNotFound.With(
			slog.String("config", config),
			slog.String("available", strings.Join(names, ", ")),
		)
	}

	seen := make(map[string]bool)

	for ok && !seen[bc.Name] {
		seen[bc.Name] = true

		if bc.Key != "" {
			vars[strings.ToUpper(bc.Key)] = "true"
			vars[strings.ToUpper(bc.Key+"_"+platform)] = "true"
		}

		if bc.Parent == "" {
			break
		}

		bc, ok = find(bc.Parent)
	}

	return vars, nil
}

// Builder assembles the environment store of a Context.
//
// Sources are layered from lowest to highest priority: the process
// environment, rsvars scripts in the order added, override files in the
// order added, then individual overrides in the order added.
type Builder struct {
	environ   []string
	rsvars    []func() (string, error)
	files     []string
	overrides [][2]string
	logger    log.Logger
	maxDepth  int
	fallback  bool
}

// NewBuilder returns a Builder seeded from the process environment.
func NewBuilder() *Builder {
	return &Builder{maxDepth: DefaultMaxDepth, fallback: true}
}

// WithEnviron replaces the process environment snapshot with a list of
// "KEY=VALUE" entries. A nil or empty list seeds nothing.
func (b *Builder) WithEnviron(environ []string) *Builder {
	if environ == nil {
		environ = []string{}
	}

	b.environ = environ

	return b
}

// WithRsvars adds the text of an rsvars script.
func (b *Builder) WithRsvars(text string) *Builder {
	b.rsvars = append(b.rsvars, func() (string, error) { return text, nil })

	return b
}

// WithRsvarsReader adds an rsvars script read from r when Build is called.
func (b *Builder) WithRsvarsReader(r io.Reader) *Builder {
	b.rsvars = append(b.rsvars, func() (string, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", ErrReadInput.Wrap(err)
		}

		return string(data), nil
	})

	return b
}

// WithRsvarsFile adds the rsvars script at path.
func (b *Builder) WithRsvarsFile(path string) *Builder {
	b.rsvars = append(b.rsvars, func() (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", ErrReadInput.Wrap(err).With(slog.String("path", path))
		}

		return string(data), nil
	})

	return b
}

// WithOverridesFile adds a dotenv file of KEY=VALUE overrides.
func (b *Builder) WithOverridesFile(path string) *Builder {
	b.files = append(b.files, path)

	return b
}

// WithOverride sets key to value after all other sources.
func (b *Builder) WithOverride(key, value string) *Builder {
	b.overrides = append(b.overrides, [2]string{key, value})

	return b
}

// WithOverrides calls WithOverride for each entry of m in key order.
func (b *Builder) WithOverrides(m map[string]string) *Builder {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		b.WithOverride(k, m[k])
	}

	return b
}

// WithMaxDepth sets the nesting bound of $(Name) expansion.
func (b *Builder) WithMaxDepth(depth int) *Builder {
	if depth > 0 {
		b.maxDepth = depth
	}

	return b
}

// WithEnvironmentFallback controls whether $(Name) falls back to the
// environment store when no property Name is defined. It is enabled by
// default, matching how MSBuild exposes environment variables.
func (b *Builder) WithEnvironmentFallback(enable bool) *Builder {
	b.fallback = enable

	return b
}

// WithLogger sets the logger of the built Context.
func (b *Builder) WithLogger(logger log.Logger) *Builder {
	b.logger = logger

	return b
}

// Env builds the environment store alone.
func (b *Builder) Env() (*env.Store, error) {
	store := env.New()

	if b.environ != nil {
		store.Seed(b.environ)
	} else {
		store.SeedFromProcessEnv()
	}

	for _, read := range b.rsvars {
		text, err := read()
		if err != nil {
			return nil, err
		}

		if err := store.MergeRsvars(text); err != nil {
			return nil, ErrParse.Wrap(err)
		}
	}

	for _, path := range b.files {
		m, err := godotenv.Read(path)
		if err != nil {
			return nil, ErrReadInput.Wrap(err).With(slog.String("path", path))
		}

		for _, k := range slices.Sorted(maps.Keys(m)) {
			store.Override(k, m[k])
		}
	}

	for _, kv := range b.overrides {
		store.Override(kv[0], kv[1])
	}

	return store, nil
}

// Build returns a Context resolving doc.
func (b *Builder) Build(doc *Document) (*Context, error) {
	store, err := b.Env()
	if err != nil {
		return nil, err
	}

	b.logger.Debug(
		"environment built",
		slog.Int("variables", store.Len()),
		slog.Int("rsvars", len(b.rsvars)),
		slog.Int("overrides", len(b.overrides)),
	)

	return &Context{
		doc:      doc,
		env:      store,
		logger:   b.logger,
		maxDepth: b.maxDepth,
		fallback: b.fallback,
	}, nil
}
