package render

// sql.go — manager database bootstrap script: one stored-procedure call per
// namespace, object, and formal parameter, carrying the same identifiers the
// C artifacts compile in.

import (
	"fmt"
	"io"
	"strings"

	"admgen/internal/ari"
	"admgen/internal/schema"
)

// SQL renders the manager database bootstrap script.
type SQL struct {
	Ctx     *Context
	Dialect string // "pgsql" (default) or "mysql"
}

func NewSQL(ctx *Context, dialect string) *SQL {
	if dialect == "" {
		dialect = "pgsql"
	}
	return &SQL{Ctx: ctx, Dialect: dialect}
}

func (g *SQL) FilePath() string {
	return fmt.Sprintf("amp-sql/adm_%s.sql", g.Ctx.Name())
}

func (g *SQL) RoundTrip() bool { return false }

// call renders one stored-procedure invocation in the configured dialect.
func (g *SQL) call(proc string, args ...string) string {
	stmt := fmt.Sprintf("CALL %s(%s);", proc, strings.Join(args, ", "))
	if g.Dialect == "mysql" {
		stmt = fmt.Sprintf("SELECT %s(%s);", proc, strings.Join(args, ", "))
	}
	return stmt
}

func sqlstr(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (g *SQL) Write(w io.Writer) error {
	c := g.Ctx
	ns := c.Model.Ns

	fmt.Fprintf(w, "-- adm_%s.sql\n", c.Name())
	fmt.Fprintf(w, "-- Manager database bootstrap for the %s data model (%s dialect).\n\n",
		ns.Name, g.Dialect)

	fmt.Fprintln(w, g.call("SP__insert_adm_defined_namespace",
		sqlstr(ns.Organization), sqlstr(ns.Name), sqlstr(ns.Version),
		fmt.Sprintf("%d", c.Model.Nickname)))
	fmt.Fprintln(w)

	for _, cat := range schema.Categories {
		entries := c.Model.Entries(cat)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "-- %s\n", cat.Long())
		for _, e := range entries {
			obj := e.Object
			fmt.Fprintln(w, g.call("SP__insert_obj_metadata",
				fmt.Sprintf("%d", ari.CategoryCode(cat)),
				sqlstr(obj.Name),
				fmt.Sprintf("%d", c.Model.Nickname),
				fmt.Sprintf("%d", e.ARI.Index)))
			if len(obj.Parmspec) > 0 {
				fmt.Fprintln(w, g.call("SP__insert_formal_parmspec",
					sqlstr(obj.Name), fmt.Sprintf("%d", len(obj.Parmspec))))
				for i, p := range obj.Parmspec {
					fmt.Fprintln(w, g.call("SP__insert_formal_parmspec_entry",
						sqlstr(obj.Name), fmt.Sprintf("%d", i+1),
						sqlstr(p.Name), sqlstr(p.Type)))
				}
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
