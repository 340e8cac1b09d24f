package render

// agentc.go — agent-side registration C file: the global index vector plus
// init functions wiring every identifier to its implementation callback.

import (
	"fmt"
	"io"

	"admgen/internal/ari"
)

// AgentC renders the agent registration file.
type AgentC struct {
	Ctx *Context
}

func NewAgentC(ctx *Context) *AgentC { return &AgentC{Ctx: ctx} }

func (g *AgentC) FilePath() string {
	return fmt.Sprintf("agent/adm_%s_agent.c", g.Ctx.Name())
}

func (g *AgentC) RoundTrip() bool { return false }

func (g *AgentC) Write(w io.Writer) error {
	c := g.Ctx
	fileHeader(w, fmt.Sprintf("adm_%s_agent.c", c.Name()), "c")
	includes(w, []string{
		"shared/adm/adm.h",
		fmt.Sprintf("shared/adm/adm_%s.h", c.Name()),
		fmt.Sprintf("adm_%s_impl.h", c.Name()),
	})

	fmt.Fprintf(w, "vec_idx_t %s[11];\n\n", ari.GlobalIdxVar(c.NsNorm()))
	writeInitFunctions(w, c, false)
	return nil
}
