package render

// mgrc.go — manager-side registration C file: init functions registering
// every identifier with its display metadata and formal parameters, with no
// implementation callbacks.

import (
	"fmt"
	"io"
)

// MgrC renders the manager registration file.
type MgrC struct {
	Ctx *Context
}

func NewMgrC(ctx *Context) *MgrC { return &MgrC{Ctx: ctx} }

func (g *MgrC) FilePath() string {
	return fmt.Sprintf("mgr/adm_%s_mgr.c", g.Ctx.Name())
}

func (g *MgrC) RoundTrip() bool { return false }

func (g *MgrC) Write(w io.Writer) error {
	c := g.Ctx
	fileHeader(w, fmt.Sprintf("adm_%s_mgr.c", c.Name()), "c")
	includes(w, []string{
		"shared/adm/adm.h",
		fmt.Sprintf("shared/adm/adm_%s.h", c.Name()),
	})
	writeInitFunctions(w, c, true)
	return nil
}
