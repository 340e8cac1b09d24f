package render

// genh.go — public header artifact: nickname enum, ARI defines, and init
// prototypes shared by the agent and manager builds.

import (
	"fmt"
	"io"
	"strings"

	"admgen/internal/ari"
	"admgen/internal/schema"
)

// GenH renders the shared ADM header.
type GenH struct {
	Ctx *Context
}

func NewGenH(ctx *Context) *GenH { return &GenH{Ctx: ctx} }

func (g *GenH) FilePath() string {
	return fmt.Sprintf("shared/adm/adm_%s.h", g.Ctx.Name())
}

func (g *GenH) RoundTrip() bool { return false }

func (g *GenH) Write(w io.Writer) error {
	c := g.Ctx
	nameUpper := strings.ToUpper(c.Name())
	nsUpper := strings.ToUpper(c.NsNorm())

	fileHeader(w, fmt.Sprintf("adm_%s.h", c.Name()), "header")
	fmt.Fprintf(w, "#ifndef ADM_%s_H_\n#define ADM_%s_H_\n", nameUpper, nameUpper)
	fmt.Fprintf(w, "#define _HAVE_%s_ADM_\n#ifdef _HAVE_%s_ADM_\n\n", nsUpper, nsUpper)

	includes(w, []string{"shared/utils/nm_types.h", "shared/adm/adm.h"})

	fmt.Fprint(w, "#ifdef __cplusplus\nextern \"C\" {\n#endif\n")

	commentHeader(w, "ADM TEMPLATE DOCUMENTATION")
	fmt.Fprintf(w, "/* ADM ROOT STRING: %s */\n", c.Model.Ns.Name)
	fmt.Fprintf(w, "extern vec_idx_t %s[11];\n", ari.GlobalIdxVar(c.NsNorm()))

	commentHeader(w, "AGENT NICKNAME DEFINITIONS")
	fmt.Fprintf(w, "#define %s %d\n", ari.EnumName(c.NsNorm()), c.Model.Nickname)

	for _, cat := range schema.Categories {
		entries := c.Model.Entries(cat)
		if len(entries) == 0 {
			continue
		}
		commentHeader(w, fmt.Sprintf("%s DEFINITIONS", strings.ToUpper(cat.Long())))
		for _, e := range entries {
			fmt.Fprintf(w, "#define %s 0x%02x\n", c.Symbol(cat, e.Object.Name), e.ARI.Index)
		}
	}

	commentHeader(w, "INITIALIZATION FUNCTIONS")
	fmt.Fprintf(w, "void %s_init();\n", c.NsNorm())
	fmt.Fprintf(w, "void %s_setup();\n", c.NsNorm())
	fmt.Fprintf(w, "void %s_cleanup();\n", c.NsNorm())

	fmt.Fprint(w, "\n#ifdef __cplusplus\n}\n#endif\n")
	fmt.Fprintf(w, "\n#endif /* _HAVE_%s_ADM_ */\n#endif /* ADM_%s_H_ */\n", nsUpper, nameUpper)
	return nil
}
