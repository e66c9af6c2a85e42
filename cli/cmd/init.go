package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/ardnew/dproj/log"
	"github.com/ardnew/dproj/profile"
)

// Init writes a configuration file holding the current flag values.
type Init struct {
	Format string `default:"yaml" enum:"json,yaml,toml" help:"Configuration file format (${enum})."`
	Force  bool   `                                      help:"Overwrite existing configuration file." short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)

	base, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	confPath := base + "." + i.Format

	// Check if file exists and force not set
	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	if err := os.MkdirAll(filepath.Dir(confPath), 0o700); err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	file, err := os.Create(confPath)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}
	defer file.Close()

	out := Output{Format: i.Format, Indent: defaultConfigIndent}

	err = out.encode(ctx, file, i.values(ctx), nil)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(
		ctx,
		"initialized configuration file",
		slog.String("path", confPath),
	)

	return nil
}

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// values returns the set flags keyed by flag name. Help, profiling, and
// hidden flags are left out, as are empty values.
func (i *Init) values(ctx context.Context) map[string]any {
	ktx := kongContextFrom(ctx)

	out := make(map[string]any)

	prefixIgnore := []string{"help", profile.Tag}

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(prefixIgnore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		if val, ok := configValue(ktx.FlagValue(flag)); ok {
			out[flag.Name] = val
		}
	}

	return out
}

// configValue converts a flag value to its configuration file form.
func configValue(v any) (any, bool) {
	switch v := v.(type) {
	case nil:
		return nil, false

	case bool:
		return v, true

	case string:
		return v, v != ""

	case fmt.Stringer:
		s := v.String()

		return s, s != ""

	case map[string]string:
		if len(v) == 0 {
			return nil, false
		}

		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = val
		}

		return m, true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true

	case reflect.Float32, reflect.Float64:
		return rv.Float(), true

	case reflect.String:
		return rv.String(), rv.Len() > 0

	case reflect.Slice:
		if rv.Len() == 0 {
			return nil, false
		}

		list := make([]any, rv.Len())
		for j := range list {
			list[j], _ = configValue(rv.Index(j).Interface())
		}

		return list, true

	default:
		return fmt.Sprint(v), true
	}
}
