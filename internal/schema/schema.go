// Package schema loads an Application Data Model (ADM) document into typed,
// categorized objects and checks it for well-formedness.
//
// An ADM file is a YAML (or JSON, which decodes through the same path)
// document with one top-level key per object category:
//
//	Mdat:  [{name: name, type: STR, value: bpsec}, ...]
//	Edd:   [{name: num_rules, type: UINT, description: ...}, ...]
//	Var:   [{name: total, type: UINT, initializer: {type: UINT, postfix-expr: [...]}}]
//	...
//
// Loading validates structure only (required fields, duplicate names);
// cross-object references are resolved later by internal/resolve.
package schema

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category identifies one of the eight fixed object categories of the
// modeling convention.
type Category int

const (
	Meta Category = iota
	Const
	Edd
	Oper
	Var
	Ctrl
	Rptt
	Tblt
)

// Categories lists all categories in canonical processing order.
var Categories = []Category{Meta, Const, Edd, Oper, Var, Ctrl, Rptt, Tblt}

// categoryNames maps a category to its short and long alias. Both forms are
// accepted as the category hint in reference tokens.
var categoryNames = map[Category][2]string{
	Meta:  {"meta", "Mdat"},
	Const: {"cnst", "Const"},
	Edd:   {"edd", "Edd"},
	Oper:  {"op", "Oper"},
	Var:   {"var", "Var"},
	Ctrl:  {"ctrl", "Ctrl"},
	Rptt:  {"rpttpl", "Rptt"},
	Tblt:  {"tblt", "Tblt"},
}

// Short returns the category's short alias (edd, ctrl, rpttpl, ...).
func (c Category) Short() string { return categoryNames[c][0] }

// Long returns the category's long alias (Edd, Ctrl, Rptt, ...).
func (c Category) Long() string { return categoryNames[c][1] }

func (c Category) String() string { return c.Long() }

// ParseCategory resolves a short or long alias to its Category,
// case-insensitively. ok is false for unknown aliases.
func ParseCategory(alias string) (Category, bool) {
	for cat, names := range categoryNames {
		if strings.EqualFold(alias, names[0]) || strings.EqualFold(alias, names[1]) {
			return cat, true
		}
	}
	return 0, false
}

// Parm is one formal parameter (or table column): a type tag and a name.
type Parm struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// Init is a variable initializer: a result type and a postfix-ordered
// expression of reference tokens.
type Init struct {
	Type    string   `yaml:"type"`
	Postfix []RefTok `yaml:"postfix-expr"`
}

// RefTok is one unresolved reference token as it appears in the document.
// The scalar form is the token text alone:
//
//	"Edd.num_rules"
//
// The mapping form adds an explicit namespace and actual parameters:
//
//	{ns: "DTN/bpsec", nm: "Edd.num_bad_tx_blks(1)", ap: ["Edd.num_rules"]}
type RefTok struct {
	Ns string   `yaml:"ns"`
	Nm string   `yaml:"nm"`
	Ap []string `yaml:"ap"`
}

// UnmarshalYAML accepts both the scalar and the mapping form of a token.
func (r *RefTok) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Nm = node.Value
		return nil
	}
	type plain RefTok
	return node.Decode((*plain)(r))
}

// Object is one named schema object within a category.
type Object struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Value       string   `yaml:"value"`
	Description string   `yaml:"description"`
	Parmspec    []Parm   `yaml:"parmspec"`
	Columns     []Parm   `yaml:"columns"`
	InTypes     []string `yaml:"in-type"`
	Initializer *Init    `yaml:"initializer"`
	Definition  []RefTok `yaml:"definition"`
}

// ADM is a loaded schema document. Slices preserve declaration order; that
// order is what the identifier resolver enumerates.
type ADM struct {
	Mdat  []Object `yaml:"Mdat"`
	Const []Object `yaml:"Const"`
	Edd   []Object `yaml:"Edd"`
	Oper  []Object `yaml:"Oper"`
	Var   []Object `yaml:"Var"`
	Ctrl  []Object `yaml:"Ctrl"`
	Rptt  []Object `yaml:"Rptt"`
	Tblt  []Object `yaml:"Tblt"`

	// Uses lists namespaces whose objects may be referenced by this ADM.
	Uses []string `yaml:"uses"`
}

// Objects returns the declared object list for cat.
func (a *ADM) Objects(cat Category) []Object {
	switch cat {
	case Meta:
		return a.Mdat
	case Const:
		return a.Const
	case Edd:
		return a.Edd
	case Oper:
		return a.Oper
	case Var:
		return a.Var
	case Ctrl:
		return a.Ctrl
	case Rptt:
		return a.Rptt
	case Tblt:
		return a.Tblt
	}
	return nil
}

// Namespace identifies the schema's scope.
type Namespace struct {
	Name         string
	Version      string
	Organization string
}

// Norm returns the normalized namespace name: lowercase with path
// separators flattened, suitable for symbol and file names.
func (ns Namespace) Norm() string {
	return strings.ToLower(strings.ReplaceAll(ns.Name, "/", "_"))
}

// Meta returns the value of the named metadata entry.
func (a *ADM) Meta(name string) (string, bool) {
	for _, obj := range a.Mdat {
		if obj.Name == name {
			return obj.Value, true
		}
	}
	return "", false
}

// Namespace assembles the identifying tuple from metadata entries.
// Load guarantees the required entries are present.
func (a *ADM) Namespace() Namespace {
	name, _ := a.Meta("namespace")
	version, _ := a.Meta("version")
	org, _ := a.Meta("organization")
	return Namespace{Name: name, Version: version, Organization: org}
}

// Name returns the schema's declared short name, normalized.
func (a *ADM) Name() string {
	name, _ := a.Meta("name")
	return strings.ToLower(strings.ReplaceAll(name, "/", "_"))
}

// DeclaredNickname returns the namespace nickname declared by the optional
// "enum" metadata entry. ok is false when the schema declares none.
func (a *ADM) DeclaredNickname() (int64, bool) {
	v, ok := a.Meta("enum")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// requiredMeta are the metadata entries every ADM must declare.
var requiredMeta = []string{"name", "namespace", "version", "organization"}

// Parse decodes and validates an ADM document.
func Parse(data []byte) (*ADM, error) {
	var adm ADM
	if err := yaml.Unmarshal(data, &adm); err != nil {
		return nil, fmt.Errorf("schema: decode: %w", err)
	}
	if err := adm.validate(); err != nil {
		return nil, err
	}
	return &adm, nil
}

// Load reads and parses the ADM document at path.
func Load(path string) (*ADM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Parse(data)
}

// validate checks structural well-formedness: required metadata, non-empty
// unique object names per category, unique parameter names per object.
func (a *ADM) validate() error {
	for _, name := range requiredMeta {
		if v, ok := a.Meta(name); !ok || v == "" {
			return fmt.Errorf("schema: missing %q metadata entry", name)
		}
	}
	if v, ok := a.Meta("enum"); ok {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("schema: enum metadata %q is not an integer", v)
		}
	}
	for _, cat := range Categories {
		seen := make(map[string]bool)
		for _, obj := range a.Objects(cat) {
			if obj.Name == "" {
				return fmt.Errorf("schema: %s object with empty name", cat)
			}
			if seen[obj.Name] {
				return fmt.Errorf("schema: duplicate %s object %q", cat, obj.Name)
			}
			seen[obj.Name] = true

			parms := make(map[string]bool)
			for _, p := range obj.Parmspec {
				if p.Name == "" {
					return fmt.Errorf("schema: %s %q: parameter with empty name", cat, obj.Name)
				}
				if parms[p.Name] {
					return fmt.Errorf("schema: %s %q: duplicate parameter %q", cat, obj.Name, p.Name)
				}
				parms[p.Name] = true
			}
		}
	}
	return nil
}
