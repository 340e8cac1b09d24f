// Package ari assigns canonical identifiers (ARIs) to schema objects.
//
// An ARI is the (namespace nickname, category code, object index) tuple that
// identifies an object at runtime. Category codes are fixed constants of the
// management-protocol convention; object indices are the zero-based positions
// of objects within their category's declared order. Identifiers are derived
// data: stable across regenerations as long as object order and names are
// unchanged. Reordering objects is a breaking change this package does not
// detect.
package ari

import (
	"fmt"
	"strings"

	"admgen/internal/schema"
)

// catInfo carries the protocol constants for one category: the nickname-area
// code, the ARI type nibble, and the AMP type symbol stem.
type catInfo struct {
	code    int64
	ariType string
	ampType string
	admIdx  string
}

// Protocol constants per category. The codes follow the nickname area
// enumeration of the management protocol; they are not generator-assigned.
var catTable = map[schema.Category]catInfo{
	schema.Const: {code: 0, ariType: "0", ampType: "cnst", admIdx: "Const"},
	schema.Ctrl:  {code: 1, ariType: "1", ampType: "ctrl", admIdx: "Ctrl"},
	schema.Edd:   {code: 2, ariType: "2", ampType: "edd", admIdx: "Edd"},
	schema.Oper:  {code: 4, ariType: "5", ampType: "Oper", admIdx: "Oper"},
	schema.Rptt:  {code: 5, ariType: "7", ampType: "rpttpl", admIdx: "Rptt"},
	schema.Tblt:  {code: 7, ariType: "a", ampType: "tblt", admIdx: "Tblt"},
	schema.Var:   {code: 9, ariType: "c", ampType: "var", admIdx: "Var"},
	// Metadata items are encoded as constants on the wire.
	schema.Meta: {code: 10, ariType: "0", ampType: "cnst", admIdx: "Meta"},
}

// CategoryCode returns the fixed nickname-area code for cat.
func CategoryCode(cat schema.Category) int64 { return catTable[cat].code }

// AriTypeNibble returns the ARI type nibble (hex digit) for cat.
func AriTypeNibble(cat schema.Category) string { return catTable[cat].ariType }

// ARI is a resolved canonical identifier. Bound actual parameters, when a
// reference supplies them, are carried by the reference node, not the ARI.
type ARI struct {
	Nickname int64
	Category schema.Category
	Index    int
}

// String renders the canonical debug form, e.g. "ari:9/Edd/3".
func (a ARI) String() string {
	return fmt.Sprintf("ari:%d/%s/%d", a.Nickname, a.Category, a.Index)
}

// Entry is one identified object within a model.
type Entry struct {
	Object *schema.Object
	Cat    schema.Category
	ARI    ARI
}

// Model is the identified object model for one namespace: every object of
// the source ADM bound to its ARI, indexed for reference lookup.
type Model struct {
	ADM      *schema.ADM
	Ns       schema.Namespace
	Nickname int64

	byCat  map[schema.Category][]*Entry
	byName map[schema.Category]map[string]*Entry
}

// Resolve enumerates every category of adm in declared order from zero and
// assigns each object its ARI. Duplicate object names within a category are
// fatal, reported before any identifier is assigned.
func Resolve(adm *schema.ADM, nickname int64) (*Model, error) {
	for _, cat := range schema.Categories {
		seen := make(map[string]bool)
		for _, obj := range adm.Objects(cat) {
			if seen[obj.Name] {
				return nil, fmt.Errorf("ari: duplicate %s object %q", cat, obj.Name)
			}
			seen[obj.Name] = true
		}
	}

	m := &Model{
		ADM:      adm,
		Ns:       adm.Namespace(),
		Nickname: nickname,
		byCat:    make(map[schema.Category][]*Entry),
		byName:   make(map[schema.Category]map[string]*Entry),
	}
	for _, cat := range schema.Categories {
		objs := adm.Objects(cat)
		m.byName[cat] = make(map[string]*Entry, len(objs))
		for i := range objs {
			e := &Entry{
				Object: &objs[i],
				Cat:    cat,
				ARI: ARI{
					Nickname: nickname,
					Category: cat,
					Index:    i,
				},
			}
			m.byCat[cat] = append(m.byCat[cat], e)
			m.byName[cat][objs[i].Name] = e
		}
	}
	return m, nil
}

// Entries returns the identified objects of cat in declaration order.
func (m *Model) Entries(cat schema.Category) []*Entry { return m.byCat[cat] }

// Find looks up an object by category and name.
func (m *Model) Find(cat schema.Category, name string) (*Entry, bool) {
	e, ok := m.byName[cat][name]
	return e, ok
}

// FindAny returns every object named name across all categories, in
// canonical category order. Used for category-unhinted reference lookups.
func (m *Model) FindAny(name string) []*Entry {
	var out []*Entry
	for _, cat := range schema.Categories {
		if e, ok := m.byName[cat][name]; ok {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Symbol helpers consumed by the artifact renderers
// ---------------------------------------------------------------------------

// Symbol returns the generated C identifier for an object,
// e.g. Symbol("dtn_bpsec", schema.Edd, "num_rules") = "DTN_BPSEC_EDD_NUM_RULES".
func Symbol(nsNorm string, cat schema.Category, name string) string {
	return strings.ToUpper(fmt.Sprintf("%s_%s_%s", nsNorm, cat.Short(), name))
}

// EnumName returns the ADM enum define for a namespace,
// e.g. "ADM_ENUM_DTN_BPSEC".
func EnumName(nsNorm string) string {
	return "ADM_ENUM_" + strings.ToUpper(nsNorm)
}

// AmpType returns the AMP type symbol for a type tag, e.g. "AMP_TYPE_UINT".
func AmpType(t string) string {
	return "AMP_TYPE_" + strings.ToUpper(t)
}

// CatAmpType returns the AMP type symbol for a category's own object type.
func CatAmpType(cat schema.Category) string {
	return AmpType(catTable[cat].ampType)
}

// GlobalIdxVar returns the agent's global index vector name for a namespace,
// e.g. "g_dtn_bpsec_idx".
func GlobalIdxVar(nsNorm string) string {
	return "g_" + strings.ToLower(nsNorm) + "_idx"
}

// AdmIdx returns the per-category index define, e.g. "ADM_EDD_IDX".
func AdmIdx(cat schema.Category) string {
	return "ADM_" + strings.ToUpper(catTable[cat].admIdx) + "_IDX"
}
