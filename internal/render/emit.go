package render

// emit.go — helpers that turn bound references into runtime C expressions.

import (
	"fmt"
	"strings"

	"admgen/internal/ari"
	"admgen/internal/resolve"
)

// entrySymbol returns the ARI macro name for a bound reference's target,
// using the target's own namespace.
func entrySymbol(b *resolve.BoundRef) string {
	return ari.Symbol(b.Ns, b.Entry.Cat, b.Entry.Object.Name)
}

// buildAriExpr renders the adm_build_ari call for a bound reference with no
// actual parameters. hasParms marks identifiers whose object declares a
// parmspec (the runtime flag, not the binding).
func buildAriExpr(b *resolve.BoundRef) string {
	parmFlag := "0"
	if len(b.Entry.Object.Parmspec) > 0 {
		parmFlag = "1"
	}
	return fmt.Sprintf("adm_build_ari(%s, %s, %s[%s], %s)",
		ari.CatAmpType(b.Entry.Cat), parmFlag,
		ari.GlobalIdxVar(b.Ns), ari.AdmIdx(b.Entry.Cat), entrySymbol(b))
}

// ariParmExpr renders the ADM_BUILD_ARI_PARM_<n> call for a bound reference
// carrying actual parameters, or falls back to the plain build when it
// carries none.
func ariParmExpr(b *resolve.BoundRef) string {
	if len(b.Args) == 0 {
		return buildAriExpr(b)
	}
	parts := make([]string, 0, len(b.Args)+3)
	parts = append(parts,
		ari.CatAmpType(b.Entry.Cat),
		fmt.Sprintf("%s[%s]", ari.GlobalIdxVar(b.Ns), ari.AdmIdx(b.Entry.Cat)),
		entrySymbol(b))
	for _, arg := range b.Args {
		parts = append(parts, tnvExpr(arg))
	}
	return fmt.Sprintf("ADM_BUILD_ARI_PARM_%d(%s)", len(b.Args), strings.Join(parts, ", "))
}

// tnvExpr renders one actual parameter as a tnv_t constructor call.
func tnvExpr(e resolve.Expr) string {
	switch v := e.(type) {
	case *resolve.Literal:
		switch v.Type {
		case "STR":
			return fmt.Sprintf("tnv_from_str(\"%s\")", v.Value)
		case "REAL64":
			return fmt.Sprintf("tnv_from_real64(%s)", v.Value)
		default:
			return fmt.Sprintf("tnv_from_uvast(%s)", v.Value)
		}
	case *resolve.FormalRef:
		// Bound at runtime from the caller's parameter map.
		return fmt.Sprintf("tnv_from_map(%s, %d)", ari.AmpType(v.Type), v.Index)
	case *resolve.BoundRef:
		return fmt.Sprintf("tnv_from_ari(%s)", ariParmExpr(v))
	}
	return ""
}
