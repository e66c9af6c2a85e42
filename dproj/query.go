package dproj

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ardnew/mung"
	"github.com/expr-lang/expr"
)

// Query evaluates an expr-lang expression over the resolved view.
//
// The expression environment provides:
//
//	props                  map of property name to expanded value
//	config, platform       the selected configuration and platform
//	prop(name)             expanded value of a property, "" if undefined
//	env(name)              environment variable, case-insensitive
//	expand(raw)            expands $(Name) and %Name% references
//	split(list)            semicolon-delimited list to slice
//	mung.prefix(list, ...) list with items prepended, duplicates removed
func (a *ActiveGroup) Query(ctx context.Context, source string) (any, error) {
	props, err := a.Map()
	if err != nil {
		return nil, err
	}

	env := a.queryEnv(props)

	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, ErrQueryCompile.Wrap(err).With(slog.String("source", source))
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, ErrQueryEvaluate.Wrap(err).With(slog.String("source", source))
	}

	a.ctx.logger.TraceContext(ctx, "query evaluated", slog.String("source", source))

	return out, nil
}

func (a *ActiveGroup) queryEnv(props map[string]string) map[string]any {
	return map[string]any{
		"props":    props,
		"config":   a.config,
		"platform": a.platform,
		"prop": func(name string) string {
			v, err := a.Resolve(name)
			if err != nil {
				return ""
			}

			return v
		},
		"env": func(name string) string {
			return a.ctx.env.Get(name)
		},
		"expand": func(raw string) string {
			v, err := a.Expand(raw)
			if err != nil {
				return raw
			}

			return v
		},
		"split": SplitList,
		"mung": map[string]any{
			"prefix": PrefixList,
		},
	}
}

// PrefixList returns the semicolon-delimited list with items prepended.
func PrefixList(list string, items ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(";"),
		mung.WithPrefixItems(items...),
		mung.WithFilter(func(s string) bool { return strings.TrimSpace(s) != "" }),
	).String()
}
