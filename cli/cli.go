package cli

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/dproj/cli/cmd"
	"github.com/ardnew/dproj/pkg"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config"

// defaultDirMode is the permission mode of created directories.
const defaultDirMode os.FileMode = 0o700

// CLI is the top-level command-line interface for dproj.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Globals cmd.Globals `embed:""`

	Props   cmd.Props   `cmd:"" default:"withargs" help:"Print resolved properties."`
	Get     cmd.Get     `cmd:""                    help:"Print one property."`
	Set     cmd.Set     `cmd:""                    help:"Change one property in the project file."`
	Paths   cmd.Paths   `cmd:""                    help:"Print the elements of a search path."`
	Configs cmd.Configs `cmd:""                    help:"List build configurations and platforms."`
	Env     cmd.Env     `cmd:""                    help:"Print the environment used for resolution."`
	Query   cmd.Query   `cmd:""                    help:"Evaluate an expression over the resolved properties."`
	Repl    cmd.Repl    `cmd:""                    help:"Evaluate expressions interactively."`
	Init    cmd.Init    `cmd:""                    help:"Write a configuration file of the current flags."`
	Version cmd.Version `cmd:""                    help:"Print version."`
}

// Run executes the dproj CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	configBase := pkg.ConfigPath(baseConfig)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configBase,
		cmd.CacheIdentifier:  pkg.CacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Configure logging before kong runs so that parse errors honor the
	// logging flags wherever they appear.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.DefaultEnvars(strings.TrimSuffix(pkg.EnvPrefix(), "_")),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(load("json", json.Unmarshal), configBase+".json"),
		kong.Configuration(load("yaml", yaml.Unmarshal), configBase+".yaml", configBase+".yml"),
		kong.Configuration(load("toml", toml.Unmarshal), configBase+".toml"),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)

	cli.Log.start(ctx)

	// No-op unless built with the pprof tag and a mode is selected.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(&cli.Globals)
}

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{pkg.ConfigDir(), pkg.CacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
