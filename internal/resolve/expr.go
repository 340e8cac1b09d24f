// Package resolve rewrites the textual cross-references of a loaded schema
// into bound canonical-identifier references.
//
// Reference tokens have the form
//
//	[namespace.][category.]name[(arg, arg, ...)]
//
// where the category alias narrows the lookup to one category, the namespace
// qualifier targets another loaded schema, and each argument is a literal, a
// formal-parameter name of the containing object, or a nested reference.
// Resolution substitutes a BoundRef for every Ref while preserving tree
// position, postfix operand order, and operator arity exactly as declared.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"admgen/internal/ari"
	"admgen/internal/schema"
)

// Expr is one node of an expression tree: a literal, an unresolved
// reference, a formal-parameter reference, or a bound reference.
type Expr interface {
	isExpr()
	String() string
}

// Literal is a self-contained value: a number or a quoted string.
type Literal struct {
	Type  string // type tag when known, e.g. UINT or STR
	Value string
}

func (Literal) isExpr()          {}
func (l Literal) String() string { return l.Value }

// Ref is an unresolved reference token.
type Ref struct {
	Ns    string // explicit namespace, empty for self-reference
	Alias string // category hint, empty to search all categories
	Name  string
	Args  []Expr
}

func (Ref) isExpr() {}

func (r Ref) String() string {
	var b strings.Builder
	if r.Ns != "" {
		b.WriteString(r.Ns)
		b.WriteByte('.')
	}
	if r.Alias != "" {
		b.WriteString(r.Alias)
		b.WriteByte('.')
	}
	b.WriteString(r.Name)
	if len(r.Args) > 0 {
		b.WriteByte('(')
		for i, a := range r.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(a.String())
		}
		b.WriteByte(')')
	}
	return b.String()
}

// FormalRef refers to a formal parameter of the containing object by its
// position in the parmspec.
type FormalRef struct {
	Index int
	Name  string
	Type  string
}

func (FormalRef) isExpr()          {}
func (f FormalRef) String() string { return f.Name }

// BoundRef is a resolved reference: the target's canonical identifier plus
// fully resolved actual parameters.
type BoundRef struct {
	ARI   ari.ARI
	Entry *ari.Entry
	Ns    string // normalized namespace of the target
	Args  []Expr // each Literal, FormalRef, or BoundRef
}

func (BoundRef) isExpr() {}

func (b BoundRef) String() string {
	if len(b.Args) == 0 {
		return b.ARI.String()
	}
	parts := make([]string, len(b.Args))
	for i, a := range b.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", b.ARI, strings.Join(parts, ","))
}

// ParseToken parses one reference token into an unresolved expression.
// Quoted strings and numbers parse as literals; everything else is a Ref.
func ParseToken(tok string) (Expr, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil, fmt.Errorf("resolve: empty reference token")
	}
	if lit, ok := parseLiteral(tok); ok {
		return lit, nil
	}

	name := tok
	var args []Expr
	if i := strings.IndexByte(tok, '('); i >= 0 {
		if !strings.HasSuffix(tok, ")") {
			return nil, fmt.Errorf("resolve: unbalanced parentheses in %q", tok)
		}
		var err error
		args, err = parseArgs(tok[i+1 : len(tok)-1])
		if err != nil {
			return nil, fmt.Errorf("resolve: token %q: %w", tok, err)
		}
		name = tok[:i]
	}

	parts := strings.Split(name, ".")
	r := &Ref{Args: args}
	switch len(parts) {
	case 1:
		r.Name = parts[0]
	case 2:
		// Two-part form: the qualifier is a category alias when it names
		// one, a namespace otherwise.
		if _, ok := schema.ParseCategory(parts[0]); ok {
			r.Alias = parts[0]
		} else {
			r.Ns = parts[0]
		}
		r.Name = parts[1]
	case 3:
		r.Ns = parts[0]
		r.Alias = parts[1]
		r.Name = parts[2]
	default:
		return nil, fmt.Errorf("resolve: malformed reference %q", tok)
	}
	if r.Name == "" {
		return nil, fmt.Errorf("resolve: malformed reference %q", tok)
	}
	if r.Alias != "" {
		if _, ok := schema.ParseCategory(r.Alias); !ok {
			return nil, fmt.Errorf("resolve: unknown category alias %q in %q", r.Alias, tok)
		}
	}
	return r, nil
}

// parseLiteral recognizes quoted strings and numeric tokens.
func parseLiteral(tok string) (Expr, bool) {
	if len(tok) >= 2 {
		if (tok[0] == '"' && tok[len(tok)-1] == '"') || (tok[0] == '\'' && tok[len(tok)-1] == '\'') {
			return &Literal{Type: "STR", Value: tok[1 : len(tok)-1]}, true
		}
	}
	if _, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return &Literal{Type: "UVAST", Value: tok}, true
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return &Literal{Type: "REAL64", Value: tok}, true
	}
	return nil, false
}

// parseArgs splits an argument list on top-level commas and parses each
// argument, which may itself be a parenthesized reference.
func parseArgs(s string) ([]Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var args []Expr
	depth, start := 0, 0
	flush := func(end int) error {
		arg := strings.TrimSpace(s[start:end])
		if arg == "" {
			return fmt.Errorf("empty argument")
		}
		e, err := ParseToken(arg)
		if err != nil {
			return err
		}
		args = append(args, e)
		return nil
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	if err := flush(len(s)); err != nil {
		return nil, err
	}
	return args, nil
}
