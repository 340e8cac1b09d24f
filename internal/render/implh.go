package render

// implh.go — implementation header: prototypes for every hand-implemented
// function, with custom includes, type-enum, and functions regions preserved
// across regenerations.

import (
	"fmt"
	"io"
	"strings"

	"admgen/internal/roundtrip"
	"admgen/internal/schema"
)

// implCats are the categories whose objects have implementation functions,
// in the order their prototypes are emitted.
var implCats = []schema.Category{
	schema.Meta, schema.Const, schema.Tblt, schema.Edd, schema.Ctrl, schema.Oper,
}

// ImplH renders the implementation header.
type ImplH struct {
	Ctx *Context
}

func NewImplH(ctx *Context) *ImplH { return &ImplH{Ctx: ctx} }

func (g *ImplH) FilePath() string {
	return fmt.Sprintf("agent/adm_%s_impl.h", g.Ctx.Name())
}

func (g *ImplH) RoundTrip() bool { return true }

func (g *ImplH) Write(w io.Writer) error {
	c := g.Ctx
	nameUpper := strings.ToUpper(c.Name())

	fileHeader(w, fmt.Sprintf("adm_%s_impl.h", c.Name()), "header")
	fmt.Fprintf(w, "#ifndef ADM_%s_IMPL_H_\n#define ADM_%s_IMPL_H_\n\n", nameUpper, nameUpper)

	fmt.Fprintln(w, roundtrip.IncludesStart)
	fmt.Fprintln(w, roundtrip.IncludesStop)
	fmt.Fprintln(w)
	includes(w, []string{"shared/utils/utils.h", "shared/primitives/tnv.h"})

	fmt.Fprint(w, "#ifdef __cplusplus\nextern \"C\" {\n#endif\n\n")

	fmt.Fprintln(w, roundtrip.TypeEnumsStart)
	fmt.Fprintln(w, roundtrip.TypeEnumsStop)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "void %s_setup();\n", c.NsNorm())
	fmt.Fprintf(w, "void %s_cleanup();\n\n", c.NsNorm())

	for _, cat := range implCats {
		entries := c.Model.Entries(cat)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "/* %s Functions */\n", cat.Long())
		for _, e := range entries {
			fmt.Fprintf(w, "%s;\n", c.FuncSignature(cat, e.Object))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, roundtrip.FunctionsStart)
	fmt.Fprintln(w, roundtrip.FunctionsStop)

	fmt.Fprint(w, "\n#ifdef __cplusplus\n}\n#endif\n")
	fmt.Fprintf(w, "\n#endif /* ADM_%s_IMPL_H_ */\n", nameUpper)
	return nil
}
