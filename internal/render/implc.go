package render

// implc.go — implementation C file. Metadata and constant getters have
// fully generated bodies; everything the implementer fills in (setup,
// cleanup, collectors, controls, operators, table builders) gets a marked
// custom body preserved across regenerations.

import (
	"fmt"
	"io"

	"admgen/internal/roundtrip"
	"admgen/internal/schema"
)

// ImplC renders the implementation C file.
type ImplC struct {
	Ctx *Context
}

func NewImplC(ctx *Context) *ImplC { return &ImplC{Ctx: ctx} }

func (g *ImplC) FilePath() string {
	return fmt.Sprintf("agent/adm_%s_impl.c", g.Ctx.Name())
}

func (g *ImplC) RoundTrip() bool { return true }

// customBody writes a function with an empty marked body.
func customBody(w io.Writer, signature, base string) {
	fmt.Fprintf(w, "\n%s\n{\n", signature)
	fmt.Fprintln(w, roundtrip.BodyStart(base))
	fmt.Fprintln(w, roundtrip.BodyStop(base))
	fmt.Fprint(w, "}\n")
}

func (g *ImplC) Write(w io.Writer) error {
	c := g.Ctx

	fileHeader(w, fmt.Sprintf("adm_%s_impl.c", c.Name()), "c")

	fmt.Fprintln(w, roundtrip.IncludesStart)
	fmt.Fprintln(w, roundtrip.IncludesStop)
	fmt.Fprintln(w)
	includes(w, []string{
		"shared/adm/adm.h",
		fmt.Sprintf("adm_%s_impl.h", c.Name()),
	})

	fmt.Fprintln(w, roundtrip.FunctionsStart)
	fmt.Fprintln(w, roundtrip.FunctionsStop)

	customBody(w, fmt.Sprintf("void %s_setup()", c.NsNorm()), "setup")
	customBody(w, fmt.Sprintf("void %s_cleanup()", c.NsNorm()), "cleanup")
	fmt.Fprintln(w)

	fmt.Fprint(w, "\n/* Metadata Functions */\n")
	for _, e := range c.Model.Entries(schema.Meta) {
		fmt.Fprintf(w, "\n%s\n{\n\treturn tnv_from_str(\"%s\");\n}\n",
			c.FuncSignature(schema.Meta, e.Object), e.Object.Value)
	}

	fmt.Fprint(w, "\n/* Constant Functions */\n")
	for _, e := range c.Model.Entries(schema.Const) {
		fmt.Fprintf(w, "\n%s\n{\n\treturn tnv_from_uvast(%s);\n}\n",
			c.FuncSignature(schema.Const, e.Object), e.Object.Value)
	}

	fmt.Fprint(w, "\n/* Table Functions */\n")
	for _, e := range c.Model.Entries(schema.Tblt) {
		base, _ := c.FuncName(schema.Tblt, e.Object)
		customBody(w, c.FuncSignature(schema.Tblt, e.Object), base)
	}

	fmt.Fprint(w, "\n/* Collect Functions */\n")
	for _, e := range c.Model.Entries(schema.Edd) {
		base, _ := c.FuncName(schema.Edd, e.Object)
		customBody(w, c.FuncSignature(schema.Edd, e.Object), base)
	}

	fmt.Fprint(w, "\n/* Control Functions */\n")
	for _, e := range c.Model.Entries(schema.Ctrl) {
		base, _ := c.FuncName(schema.Ctrl, e.Object)
		customBody(w, c.FuncSignature(schema.Ctrl, e.Object), base)
	}

	fmt.Fprint(w, "\n/* Operator Functions */\n")
	for _, e := range c.Model.Entries(schema.Oper) {
		base, _ := c.FuncName(schema.Oper, e.Object)
		customBody(w, c.FuncSignature(schema.Oper, e.Object), base)
	}

	return nil
}
