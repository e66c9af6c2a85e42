package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Output selects how a command prints structured results.
type Output struct {
	Format string `default:"text" enum:"text,json,yaml,toml" help:"Output format (${enum})." short:"o"`
	Indent int    `default:"2"                                help:"Indent width of JSON, YAML, and TOML output."`
}

// encode writes v in the selected format. Text output is produced by text,
// which is called only for the text format.
func (o Output) encode(
	ctx context.Context,
	w io.Writer,
	v any,
	text func(io.Writer) error,
) error {
	switch o.Format {
	case "json":
		var (
			data []byte
			err  error
		)

		if o.Indent > 0 {
			data, err = json.MarshalIndent(v, "", strings.Repeat(" ", o.Indent))
		} else {
			data, err = json.Marshal(v)
		}

		if err != nil {
			return ErrJSONMarshal.Wrap(err)
		}

		_, err = fmt.Fprintf(w, "%s\n", data)

		return err

	case "yaml":
		var opts []yaml.EncodeOption
		if o.Indent > 0 {
			opts = append(opts, yaml.Indent(o.Indent))
		}

		data, err := yaml.MarshalContext(ctx, v, opts...)
		if err != nil {
			return ErrYAMLMarshal.Wrap(err)
		}

		_, err = w.Write(data)

		return err

	case "toml":
		enc := toml.NewEncoder(w)
		enc.Indent = strings.Repeat(" ", o.Indent)

		if err := enc.Encode(v); err != nil {
			return ErrTOMLMarshal.Wrap(err).With(slog.String("type", fmt.Sprintf("%T", v)))
		}

		return nil

	default:
		return text(w)
	}
}
