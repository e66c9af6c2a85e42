package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/dproj/log"
)

// load returns a [kong.ConfigurationLoader] that decodes a configuration
// file with unmarshal, which may be [encoding/json.Unmarshal],
// [github.com/goccy/go-yaml.Unmarshal], or
// [github.com/BurntSushi/toml.Unmarshal].
//
// The file is a map of flag names to values:
//
//	log-level: debug
//	max_depth: 16
//	define:
//	  BDS: C:\Program Files (x86)\Embarcadero\Studio\23.0
//
// A flag is found under its own name, with hyphens replaced by
// underscores, or as a path of nested maps ("log: {level: debug}" for
// --log-level). Command-line flags override configuration values. A file
// that does not decode is reported and ignored.
func load(name string, unmarshal func([]byte, any) error) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}

		var m map[string]any

		if err := unmarshal(data, &m); err != nil {
			log.Warn("ignoring configuration file",
				slog.String("format", name),
				slog.Any("error", err),
			)

			return config{}, nil
		}

		return config(normalize(m).(map[string]any)), nil
	}
}

// config implements [kong.Resolver] over a decoded configuration file.
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	v, _ := c.lookup(strings.Split(flag.Name, "-"))

	return v, nil
}

// lookup finds the value of the hyphenated name made of parts, either as a
// single key or as a path of nested maps.
func (c config) lookup(parts []string) (any, bool) {
	for _, key := range keys(strings.Join(parts, "-")) {
		if v, ok := c[key]; ok {
			return v, true
		}
	}

	for i := 1; i < len(parts); i++ {
		for _, key := range keys(strings.Join(parts[:i], "-")) {
			if sub, ok := c[key].(map[string]any); ok {
				if v, ok := config(sub).lookup(parts[i:]); ok {
					return v, true
				}
			}
		}
	}

	return nil, false
}

// keys returns the spellings of a flag name accepted as configuration keys.
func keys(name string) []string {
	return []string{name, strings.ReplaceAll(name, "-", "_")}
}

// normalize converts decoded values to the forms kong's mappers accept.
// Numbers become strings, and the map types of each decoder become
// map[string]any.
func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = normalize(e)
		}

		return m

	case map[any]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[toString(k)] = normalize(e)
		}

		return m

	case []any:
		list := make([]any, len(v))
		for i, e := range v {
			list[i] = normalize(e)
		}

		return list

	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return toString(v)

	default:
		return v
	}
}

func toString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
