package render

// initc.go — shared emission of the per-category init functions that make up
// the agent and manager C files. The manager variant registers metadata
// (names, descriptions, formal parameters) alongside each identifier; the
// agent variant wires implementation callbacks instead.

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"admgen/internal/ari"
	"admgen/internal/resolve"
	"admgen/internal/schema"
)

// initOrder fixes the emission and call order of the init functions.
// Dependencies flow forward: variables and reports reference earlier
// categories.
var initOrder = []schema.Category{
	schema.Meta, schema.Const, schema.Edd, schema.Oper,
	schema.Var, schema.Ctrl, schema.Rptt, schema.Tblt,
}

// cstr renders s as a C string literal.
func cstr(s string) string {
	return strconv.Quote(strings.ReplaceAll(s, "\n", " "))
}

// entryAriExpr renders the adm_build_ari call for one of the current
// namespace's own objects.
func entryAriExpr(c *Context, e *ari.Entry) string {
	parmFlag := "0"
	if len(e.Object.Parmspec) > 0 {
		parmFlag = "1"
	}
	return fmt.Sprintf("adm_build_ari(%s, %s, %s[%s], %s)",
		ari.CatAmpType(e.Cat), parmFlag,
		ari.GlobalIdxVar(c.NsNorm()), ari.AdmIdx(e.Cat), c.Symbol(e.Cat, e.Object.Name))
}

// writeInitFunction wraps body in the standard init function frame.
func writeInitFunction(w io.Writer, ns string, cat schema.Category, body string) {
	fmt.Fprintf(w, "static void %s_init_%s()\n{\n%s}\n\n", ns, cat.Short(), body)
}

// metaAdd renders the manager's meta_add_<kind> registration call.
func metaAdd(c *Context, cat schema.Category, ampType string, obj *schema.Object) string {
	kind := cat.Short()
	if cat == schema.Meta {
		kind = "cnst"
	}
	switch cat {
	case schema.Ctrl:
		return fmt.Sprintf("meta_add_ctrl(id, %s, %s, %s);",
			ari.EnumName(c.NsNorm()), cstr(obj.Name), cstr(obj.Description))
	case schema.Rptt:
		return fmt.Sprintf("meta_add_rpttpl(def->id, %s, %s, %s);",
			ari.EnumName(c.NsNorm()), cstr(obj.Name), cstr(obj.Description))
	case schema.Tblt:
		return fmt.Sprintf("meta_add_tblt(def->id, %s, %s, %s);",
			ari.EnumName(c.NsNorm()), cstr(obj.Name), cstr(obj.Description))
	default:
		return fmt.Sprintf("meta_add_%s(%s, id, %s, %s, %s);",
			kind, ampType, ari.EnumName(c.NsNorm()), cstr(obj.Name), cstr(obj.Description))
	}
}

// parmAdds renders meta_add_parm calls for an object's formal parameters.
func parmAdds(obj *schema.Object) string {
	var b strings.Builder
	for _, p := range obj.Parmspec {
		fmt.Fprintf(&b, "\tmeta_add_parm(meta, %s, %s);\n", cstr(p.Name), ari.AmpType(p.Type))
	}
	return b.String()
}

// writeSimpleInit emits the init function for categories registered with a
// single adm_add call per object: metadata, constants, EDDs, operators, and
// controls.
func writeSimpleInit(w io.Writer, c *Context, cat schema.Category, mgr bool) {
	var b strings.Builder
	entries := c.Model.Entries(cat)

	hasParms := false
	for _, e := range entries {
		if len(e.Object.Parmspec) > 0 {
			hasParms = true
		}
	}
	if mgr && len(entries) > 0 {
		b.WriteString("\tari_t *id = NULL;\n")
		if hasParms {
			b.WriteString("\tmetadata_t *meta = NULL;\n")
		}
	}

	for _, e := range entries {
		obj := e.Object
		_, full := c.FuncName(cat, obj)
		ampType := ari.AmpType(obj.Type)
		if cat == schema.Meta {
			ampType = ari.AmpType("STR")
		}

		fmt.Fprintf(&b, "\n\t/* %s */\n", strings.ToUpper(obj.Name))
		if mgr {
			fmt.Fprintf(&b, "\tid = %s;\n", entryAriExpr(c, e))
			switch cat {
			case schema.Ctrl:
				fmt.Fprintf(&b, "\tadm_add_ctrldef(id, %d, NULL);\n", len(obj.Parmspec))
			case schema.Oper:
				fmt.Fprintf(&b, "\tadm_add_op(id, %d, NULL);\n", len(obj.InTypes))
			default:
				fmt.Fprintf(&b, "\tadm_add_%s(id, NULL);\n", mapAddKind(cat))
			}
			reg := metaAdd(c, cat, ampType, obj)
			if len(obj.Parmspec) > 0 {
				fmt.Fprintf(&b, "\tmeta = %s\n", reg)
				b.WriteString(parmAdds(obj))
			} else {
				fmt.Fprintf(&b, "\t%s\n", reg)
			}
		} else {
			switch cat {
			case schema.Ctrl:
				fmt.Fprintf(&b, "\tadm_add_ctrldef(%s, %d, %s);\n", entryAriExpr(c, e), len(obj.Parmspec), full)
			case schema.Oper:
				fmt.Fprintf(&b, "\tadm_add_op(%s, %d, %s);\n", entryAriExpr(c, e), len(obj.InTypes), full)
			default:
				fmt.Fprintf(&b, "\tadm_add_%s(%s, %s);\n", mapAddKind(cat), entryAriExpr(c, e), full)
			}
		}
	}
	writeInitFunction(w, c.NsNorm(), cat, b.String())
}

// mapAddKind returns the adm_add_* suffix for categories sharing the simple
// registration shape.
func mapAddKind(cat schema.Category) string {
	if cat == schema.Meta || cat == schema.Const {
		return "cnst"
	}
	return cat.Short()
}

// writeVarInit emits the variable init function: each variable's initializer
// is rebuilt as a postfix expression of bound identifiers, operand order
// preserved exactly as declared.
func writeVarInit(w io.Writer, c *Context, mgr bool) {
	var b strings.Builder
	entries := c.Model.Entries(schema.Var)

	hasExpr := false
	for _, e := range entries {
		if refs := c.Res.Refs(e); refs != nil && len(refs.Postfix) > 0 {
			hasExpr = true
		}
	}
	if len(entries) > 0 {
		b.WriteString("\tari_t *id = NULL;\n")
		if hasExpr {
			b.WriteString("\texpr_t *expr = NULL;\n")
		}
	}

	for _, e := range entries {
		obj := e.Object
		fmt.Fprintf(&b, "\n\t/* %s */\n", strings.ToUpper(obj.Name))
		fmt.Fprintf(&b, "\tid = %s;\n", entryAriExpr(c, e))

		refs := c.Res.Refs(e)
		if refs != nil && len(refs.Postfix) > 0 {
			initType := ari.AmpType(refs.PostfixType)
			fmt.Fprintf(&b, "\texpr = expr_create(%s);\n", initType)
			for _, operand := range refs.Postfix {
				fmt.Fprintf(&b, "\texpr_add_item(expr, %s);\n", operandExpr(operand))
			}
			fmt.Fprintf(&b, "\tadm_add_var_from_expr(id, %s, expr);\n", initType)
		}
		if mgr {
			fmt.Fprintf(&b, "\t%s\n", metaAdd(c, schema.Var, ari.AmpType(obj.Type), obj))
		}
	}
	writeInitFunction(w, c.NsNorm(), schema.Var, b.String())
}

// operandExpr renders one postfix operand.
func operandExpr(e resolve.Expr) string {
	if b, ok := e.(*resolve.BoundRef); ok {
		return ariParmExpr(b)
	}
	return tnvExpr(e)
}

// writeRpttInit emits the report template init function from bound
// definition references.
func writeRpttInit(w io.Writer, c *Context, mgr bool) {
	var b strings.Builder
	entries := c.Model.Entries(schema.Rptt)

	hasParms := false
	if len(entries) > 0 {
		b.WriteString("\trpttpl_t *def = NULL;\n")
	}
	if mgr {
		for _, e := range entries {
			if len(e.Object.Parmspec) > 0 {
				hasParms = true
			}
		}
		if hasParms {
			b.WriteString("\tmetadata_t *meta = NULL;\n")
		}
	}

	for _, e := range entries {
		obj := e.Object
		fmt.Fprintf(&b, "\n\t/* %s */\n", strings.ToUpper(obj.Name))
		fmt.Fprintf(&b, "\tdef = rpttpl_create_id(%s);\n", entryAriExpr(c, e))
		if refs := c.Res.Refs(e); refs != nil {
			for _, item := range refs.Definition {
				fmt.Fprintf(&b, "\trpttpl_add_item(def, %s);\n", operandExpr(item))
			}
		}
		b.WriteString("\tadm_add_rpttpl(def);\n")
		if mgr {
			reg := metaAdd(c, schema.Rptt, "", obj)
			if len(obj.Parmspec) > 0 {
				fmt.Fprintf(&b, "\tmeta = %s\n", reg)
				b.WriteString(parmAdds(obj))
			} else {
				fmt.Fprintf(&b, "\t%s\n", reg)
			}
		}
	}
	writeInitFunction(w, c.NsNorm(), schema.Rptt, b.String())
}

// writeTbltInit emits the table template init function.
func writeTbltInit(w io.Writer, c *Context, mgr bool) {
	var b strings.Builder
	entries := c.Model.Entries(schema.Tblt)
	if len(entries) > 0 {
		b.WriteString("\ttblt_t *def = NULL;\n")
	}

	for _, e := range entries {
		obj := e.Object
		_, full := c.FuncName(schema.Tblt, obj)
		callback := full
		if mgr {
			callback = "NULL"
		}
		fmt.Fprintf(&b, "\n\t/* %s */\n", strings.ToUpper(obj.Name))
		fmt.Fprintf(&b, "\tdef = tblt_create(%s, %s);\n", entryAriExpr(c, e), callback)
		for _, col := range obj.Columns {
			fmt.Fprintf(&b, "\ttblt_add_col(def, %s, %s);\n", ari.AmpType(col.Type), cstr(col.Name))
		}
		b.WriteString("\tadm_add_tblt(def);\n")
		if mgr {
			fmt.Fprintf(&b, "\t%s\n", metaAdd(c, schema.Tblt, "", obj))
		}
	}
	writeInitFunction(w, c.NsNorm(), schema.Tblt, b.String())
}

// writeInitFunctions emits every per-category init function plus the
// top-level <ns>_init entry point.
func writeInitFunctions(w io.Writer, c *Context, mgr bool) {
	ns := c.NsNorm()

	for _, cat := range initOrder {
		fmt.Fprintf(w, "static void %s_init_%s();\n", ns, cat.Short())
	}
	fmt.Fprintln(w)

	for _, cat := range initOrder {
		switch cat {
		case schema.Var:
			writeVarInit(w, c, mgr)
		case schema.Rptt:
			writeRpttInit(w, c, mgr)
		case schema.Tblt:
			writeTbltInit(w, c, mgr)
		default:
			writeSimpleInit(w, c, cat, mgr)
		}
	}

	// Top-level init: register the namespace, publish nicknames for the
	// populated categories, then run each category init in order.
	var b strings.Builder
	fmt.Fprintf(&b, "\tadm_add_adm_info(%s, %s);\n", cstr(c.Model.Ns.Name), ari.EnumName(ns))
	for _, cat := range initOrder {
		if len(c.Model.Entries(cat)) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\tVDB_ADD_NN(((%s * 20) + %s), &(%s[%s]));\n",
			ari.EnumName(ns), ari.AdmIdx(cat), ari.GlobalIdxVar(ns), ari.AdmIdx(cat))
	}
	b.WriteString("\n")
	if !mgr {
		fmt.Fprintf(&b, "\t%s_setup();\n", ns)
	}
	for _, cat := range initOrder {
		fmt.Fprintf(&b, "\t%s_init_%s();\n", ns, cat.Short())
	}
	fmt.Fprintf(w, "void %s_init()\n{\n%s}\n", ns, b.String())
}
