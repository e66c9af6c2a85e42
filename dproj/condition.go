package dproj

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/zeebo/xxh3"
)

var conditionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `'[^']*'`},
	{Name: "Property", Pattern: `\$\([^()]*\)`},
	{Name: "Op", Pattern: `==|!=`},
	{Name: "And", Pattern: `(?i)and\b`},
	{Name: "Or", Pattern: `(?i)or\b`},
	{Name: "Exists", Pattern: `(?i)exists\b`},
	{Name: "Word", Pattern: `[A-Za-z0-9_.\-]+`},
	{Name: "Punct", Pattern: `[()!]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var conditionParser = participle.MustBuild[condOr](
	participle.Lexer(conditionLexer),
	participle.Elide("Whitespace"),
)

type condOr struct {
	Terms []*condAnd `parser:"@@ ( Or @@ )*"`
}

type condAnd struct {
	Terms []*condUnary `parser:"@@ ( And @@ )*"`
}

type condUnary struct {
	Not  *condUnary `parser:"  '!' @@"`
	Atom *condAtom  `parser:"| @@"`
}

type condAtom struct {
	Exists  *condOperand `parser:"  Exists '(' @@ ')'"`
	Group   *condOr      `parser:"| '(' @@ ')'"`
	Compare *condCompare `parser:"| @@"`
}

type condCompare struct {
	Left  *condOperand `parser:"@@"`
	Op    string       `parser:"( @Op"`
	Right *condOperand `parser:"  @@ )?"`
}

type condOperand struct {
	Quoted   *quoted `parser:"  @String"`
	Property *string `parser:"| @Property"`
	Word     *string `parser:"| @Word"`
}

// quoted is a single-quoted condition string with the quotes removed.
type quoted string

func (q *quoted) Capture(values []string) error {
	v := values[0]
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		v = v[1 : len(v)-1]
	}

	*q = quoted(v)

	return nil
}

// Expander expands the references in an operand of a condition.
type Expander func(string) (string, error)

// Condition is a parsed Condition attribute.
type Condition struct {
	src  string
	root *condOr
}

var conditionCache sync.Map // xxh3 of source -> *Condition

// ParseCondition parses a Condition attribute. An empty or blank string
// yields a condition that always holds.
func ParseCondition(src string) (*Condition, error) {
	if strings.TrimSpace(src) == "" {
		return &Condition{src: src}, nil
	}

	key := xxh3.HashString(src)
	if c, ok := conditionCache.Load(key); ok {
		if c := c.(*Condition); c.src == src {
			return c, nil
		}
	}

	root, err := conditionParser.ParseString("", src)
	if err != nil {
		e := ErrConditionSyntax.Wrap(err).With(slog.String("condition", src))

		var pe participle.Error
		if errors.As(err, &pe) {
			e = e.With(slog.Int("column", pe.Position().Column))
		}

		return nil, e
	}

	if err := root.check(); err != nil {
		return nil, ErrConditionSyntax.Wrap(err).With(slog.String("condition", src))
	}

	c := &Condition{src: src, root: root}
	conditionCache.LoadOrStore(key, c)

	return c, nil
}

// String returns the source text of c.
func (c *Condition) String() string { return c.src }

// Evaluate reports whether c holds. Each operand is passed through expand
// before comparison; comparisons are exact and case-sensitive. Errors from
// expand are returned unchanged.
func (c *Condition) Evaluate(expand Expander) (bool, error) {
	if c.root == nil {
		return true, nil
	}

	return c.root.eval(expand)
}

func (e *condOr) eval(expand Expander) (bool, error) {
	for _, t := range e.Terms {
		ok, err := t.eval(expand)
		if err != nil || ok {
			return ok, err
		}
	}

	return false, nil
}

func (e *condAnd) eval(expand Expander) (bool, error) {
	for _, t := range e.Terms {
		ok, err := t.eval(expand)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

func (e *condUnary) eval(expand Expander) (bool, error) {
	if e.Not != nil {
		ok, err := e.Not.eval(expand)

		return !ok && err == nil, err
	}

	return e.Atom.eval(expand)
}

func (e *condAtom) eval(expand Expander) (bool, error) {
	switch {
	case e.Exists != nil:
		// Paths are not checked; project files assume their SDK is present.
		return true, nil

	case e.Group != nil:
		return e.Group.eval(expand)

	default:
		return e.Compare.eval(expand)
	}
}

func (e *condCompare) eval(expand Expander) (bool, error) {
	left, err := e.Left.value(expand)
	if err != nil {
		return false, err
	}

	if e.Right == nil {
		v, ok := boolean(left)
		if !ok {
			return false, ErrConditionSyntax.
				Wrap(errors.New("operand is not a boolean")).
				With(slog.String("operand", left))
		}

		return v, nil
	}

	right, err := e.Right.value(expand)
	if err != nil {
		return false, err
	}

	if e.Op == "!=" {
		return left != right, nil
	}

	return left == right, nil
}

func (o *condOperand) value(expand Expander) (string, error) {
	switch {
	case o.Quoted != nil:
		return expand(string(*o.Quoted))
	case o.Property != nil:
		return expand(*o.Property)
	default:
		return *o.Word, nil
	}
}

// boolean reports the truth value of an operand used without an operator.
// Only the literals true, on, yes and false, off, no are accepted.
func boolean(s string) (v, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes":
		return true, true
	case "false", "off", "no":
		return false, true
	default:
		return false, false
	}
}

// check rejects operands without an operator whose text is known before
// expansion and is not a boolean literal.
func (e *condOr) check() error {
	for _, and := range e.Terms {
		for _, u := range and.Terms {
			if err := u.check(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *condUnary) check() error {
	switch {
	case e.Not != nil:
		return e.Not.check()
	case e.Atom.Group != nil:
		return e.Atom.Group.check()
	case e.Atom.Compare != nil && e.Atom.Compare.Right == nil:
		return e.Atom.Compare.Left.check()
	default:
		return nil
	}
}

func (o *condOperand) check() error {
	var text string

	switch {
	case o.Property != nil:
		return nil
	case o.Quoted != nil:
		text = string(*o.Quoted)
		if strings.Contains(text, "$(") || strings.Contains(text, "%") {
			return nil
		}
	default:
		text = *o.Word
	}

	if _, ok := boolean(text); !ok {
		return errors.New("operand is not a boolean: " + text)
	}

	return nil
}
