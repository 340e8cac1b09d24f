package resolve

import (
	"errors"
	"fmt"
	"strings"

	"admgen/internal/ari"
	"admgen/internal/schema"
)

// Sentinel causes for reference-resolution failures. Callers branch on these
// through errors.Is; every failure is fatal for the run.
var (
	ErrUnresolved = errors.New("unresolved reference")
	ErrAmbiguous  = errors.New("ambiguous reference")
	ErrArity      = errors.New("parameter arity mismatch")
	ErrNamespace  = errors.New("unknown namespace")
)

// RefError reports a failed resolution with the offending token and its
// containing object.
type RefError struct {
	Token  string
	Object string // "<category> <name>" of the containing object
	Err    error
}

func (e *RefError) Error() string {
	return fmt.Sprintf("resolve: %s: token %q in %s", e.Err, e.Token, e.Object)
}

func (e *RefError) Unwrap() error { return e.Err }

// ModelSet holds the identified models visible to resolution: the schema
// being generated plus any namespaces it uses.
type ModelSet struct {
	current *ari.Model
	models  map[string]*ari.Model
}

// NewModelSet creates a set with current as the self-reference namespace.
func NewModelSet(current *ari.Model) *ModelSet {
	s := &ModelSet{
		current: current,
		models:  make(map[string]*ari.Model),
	}
	s.models[current.Ns.Norm()] = current
	return s
}

// Add registers an additional namespace's model for cross-namespace lookups.
func (s *ModelSet) Add(m *ari.Model) {
	s.models[m.Ns.Norm()] = m
}

// Current returns the model under generation.
func (s *ModelSet) Current() *ari.Model { return s.current }

// normNs normalizes a namespace qualifier the same way schema.Namespace.Norm
// normalizes declared names.
func normNs(ns string) string {
	return strings.ToLower(strings.ReplaceAll(ns, "/", "_"))
}

// ObjectRefs carries the bound expressions of one object.
type ObjectRefs struct {
	Entry *ari.Entry

	// Postfix is the bound initializer expression in declared RPN order.
	Postfix []Expr
	// PostfixType is the initializer's declared result type.
	PostfixType string
	// Definition is the bound definition list (report templates).
	Definition []Expr
}

// Resolution is the output of resolving one schema: every expression field
// rewritten into bound references, keyed by object entry.
type Resolution struct {
	Set     *ModelSet
	objects map[*ari.Entry]*ObjectRefs
}

// Refs returns the bound expressions for e, or nil when e declared none.
func (r *Resolution) Refs(e *ari.Entry) *ObjectRefs { return r.objects[e] }

// Resolve walks every initializer and definition field of the current model's
// schema and binds each reference token. It returns the complete resolution
// or the first error; nothing partial is retained on failure.
func Resolve(set *ModelSet) (*Resolution, error) {
	res := &Resolution{
		Set:     set,
		objects: make(map[*ari.Entry]*ObjectRefs),
	}
	for _, cat := range schema.Categories {
		for _, entry := range set.current.Entries(cat) {
			refs, err := resolveObject(set, entry)
			if err != nil {
				return nil, err
			}
			if refs != nil {
				res.objects[entry] = refs
			}
		}
	}
	return res, nil
}

// resolveObject binds the expression fields of a single object. Returns nil
// when the object has no expression fields.
func resolveObject(set *ModelSet, entry *ari.Entry) (*ObjectRefs, error) {
	obj := entry.Object
	if obj.Initializer == nil && len(obj.Definition) == 0 {
		return nil, nil
	}
	owner := fmt.Sprintf("%s %q", entry.Cat, obj.Name)
	refs := &ObjectRefs{Entry: entry}

	if obj.Initializer != nil {
		refs.PostfixType = obj.Initializer.Type
		for _, tok := range obj.Initializer.Postfix {
			bound, err := resolveToken(set, tok, obj, owner)
			if err != nil {
				return nil, err
			}
			refs.Postfix = append(refs.Postfix, bound)
		}
	}
	for _, tok := range obj.Definition {
		bound, err := resolveToken(set, tok, obj, owner)
		if err != nil {
			return nil, err
		}
		refs.Definition = append(refs.Definition, bound)
	}
	return refs, nil
}

// resolveToken parses one raw token and binds it. The token's explicit ns
// field and ap list, when present, extend the parsed form.
func resolveToken(set *ModelSet, tok schema.RefTok, owner *schema.Object, ownerName string) (Expr, error) {
	expr, err := ParseToken(tok.Nm)
	if err != nil {
		return nil, &RefError{Token: tok.Nm, Object: ownerName, Err: err}
	}
	if ref, ok := expr.(*Ref); ok {
		if tok.Ns != "" {
			ref.Ns = tok.Ns
		}
		for _, ap := range tok.Ap {
			arg, err := ParseToken(ap)
			if err != nil {
				return nil, &RefError{Token: ap, Object: ownerName, Err: err}
			}
			ref.Args = append(ref.Args, arg)
		}
	}
	return resolveExpr(set, expr, owner, ownerName)
}

// resolveExpr substitutes bound nodes for references, leaving literals and
// formal-parameter references in place.
func resolveExpr(set *ModelSet, expr Expr, owner *schema.Object, ownerName string) (Expr, error) {
	ref, ok := expr.(*Ref)
	if !ok {
		return expr, nil
	}
	tok := ref.String()

	// A bare, argument-less name matching a formal parameter of the owner
	// binds to that parameter's position.
	if ref.Ns == "" && ref.Alias == "" && len(ref.Args) == 0 {
		for i, p := range owner.Parmspec {
			if p.Name == ref.Name {
				return &FormalRef{Index: i, Name: p.Name, Type: p.Type}, nil
			}
		}
	}

	// Resolve the namespace: self unless explicitly qualified.
	model := set.current
	nsNorm := set.current.Ns.Norm()
	if ref.Ns != "" {
		nsNorm = normNs(ref.Ns)
		m, ok := set.models[nsNorm]
		if !ok {
			return nil, &RefError{Token: tok, Object: ownerName,
				Err: fmt.Errorf("%w %q", ErrNamespace, ref.Ns)}
		}
		model = m
	}

	// Look up the target: category hint narrows to one category, otherwise
	// exactly one match across all categories is required.
	var entry *ari.Entry
	if ref.Alias != "" {
		cat, _ := schema.ParseCategory(ref.Alias)
		e, ok := model.Find(cat, ref.Name)
		if !ok {
			return nil, &RefError{Token: tok, Object: ownerName, Err: ErrUnresolved}
		}
		entry = e
	} else {
		matches := model.FindAny(ref.Name)
		switch len(matches) {
		case 0:
			return nil, &RefError{Token: tok, Object: ownerName, Err: ErrUnresolved}
		case 1:
			entry = matches[0]
		default:
			cats := make([]string, len(matches))
			for i, m := range matches {
				cats[i] = m.Cat.String()
			}
			return nil, &RefError{Token: tok, Object: ownerName,
				Err: fmt.Errorf("%w: %q matches %s", ErrAmbiguous, ref.Name, strings.Join(cats, ", "))}
		}
	}

	// Arity check against the target's parmspec, then recursive resolution
	// of each actual parameter.
	formals := entry.Object.Parmspec
	if len(ref.Args) != len(formals) {
		return nil, &RefError{Token: tok, Object: ownerName,
			Err: fmt.Errorf("%w: %q takes %d parameter(s), got %d",
				ErrArity, ref.Name, len(formals), len(ref.Args))}
	}
	bound := &BoundRef{
		ARI:   entry.ARI,
		Entry: entry,
		Ns:    nsNorm,
	}
	for _, arg := range ref.Args {
		ba, err := resolveExpr(set, arg, owner, ownerName)
		if err != nil {
			return nil, err
		}
		bound.Args = append(bound.Args, ba)
	}
	return bound, nil
}
