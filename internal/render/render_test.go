package render_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"admgen/internal/ari"
	"admgen/internal/render"
	"admgen/internal/resolve"
	"admgen/internal/roundtrip"
	"admgen/internal/schema"
)

const testADM = `
Mdat:
  - {name: name, type: STR, value: bpsec}
  - {name: namespace, type: STR, value: DTN/bpsec}
  - {name: version, type: STR, value: v0.1}
  - {name: organization, type: STR, value: JHUAPL}
Edd:
  - {name: num_good_tx_blks, type: UINT}
  - name: num_bad_tx_blks
    type: UINT
    parmspec:
      - {name: rule_name, type: STR}
Var:
  - name: total_blks
    type: UINT
    initializer:
      type: UINT
      postfix-expr:
        - Edd.num_good_tx_blks
        - Edd.num_bad_tx_blks("x")
        - Oper.plusUINT
Oper:
  - {name: plusUINT, type: UINT, in-type: [UINT, UINT]}
Ctrl:
  - name: rst_all_cnts
Rptt:
  - name: full_report
    definition:
      - Edd.num_good_tx_blks
Tblt:
  - name: rules
    columns:
      - {name: rule_id, type: UINT}
`

func buildContext(t *testing.T) *render.Context {
	t.Helper()
	adm, err := schema.Parse([]byte(testADM))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	model, err := ari.Resolve(adm, 9)
	if err != nil {
		t.Fatalf("ari.Resolve: %v", err)
	}
	res, err := resolve.Resolve(resolve.NewModelSet(model))
	if err != nil {
		t.Fatalf("resolve.Resolve: %v", err)
	}
	return &render.Context{Model: model, Res: res}
}

func allWriters(ctx *render.Context) []render.Writer {
	return []render.Writer{
		render.NewImplH(ctx),
		render.NewImplC(ctx),
		render.NewGenH(ctx),
		render.NewMgrC(ctx),
		render.NewAgentC(ctx),
		render.NewSQL(ctx, "pgsql"),
	}
}

func TestGenerateProducesExpectedPaths(t *testing.T) {
	bundle, notices, err := render.Generate(allWriters(buildContext(t)), t.TempDir(), true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(notices) != 0 {
		t.Errorf("notices = %v", notices)
	}

	want := []string{
		"agent/adm_bpsec_agent.c",
		"agent/adm_bpsec_impl.c",
		"agent/adm_bpsec_impl.h",
		"amp-sql/adm_bpsec.sql",
		"mgr/adm_bpsec_mgr.c",
		"shared/adm/adm_bpsec.h",
	}
	got := bundle.Paths()
	if len(got) != len(want) {
		t.Fatalf("Paths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Paths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestImplFilesHaveWellFormedMarkers(t *testing.T) {
	bundle, _, err := render.Generate(allWriters(buildContext(t)), t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{"agent/adm_bpsec_impl.c", "agent/adm_bpsec_impl.h"} {
		text, ok := bundle.Text(path)
		if !ok {
			t.Fatalf("missing %s", path)
		}
		regions, err := roundtrip.Extract(text)
		if err != nil {
			t.Fatalf("%s: skeleton markers malformed: %v", path, err)
		}
		if !regions.HasIncludes || !regions.HasFunctions {
			t.Errorf("%s: expected includes and functions regions", path)
		}
	}

	text, _ := bundle.Text("agent/adm_bpsec_impl.h")
	regions, err := roundtrip.Extract(text)
	if err != nil {
		t.Fatal(err)
	}
	if !regions.HasTypeEnums {
		t.Error("impl header missing the type-enum region")
	}
}

func TestImplCHasBodyPerImplementedObject(t *testing.T) {
	bundle, _, err := render.Generate(allWriters(buildContext(t)), t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	text, _ := bundle.Text("agent/adm_bpsec_impl.c")
	regions, err := roundtrip.Extract(text)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"setup", "cleanup",
		"get_num_good_tx_blks", "get_num_bad_tx_blks",
		"ctrl_rst_all_cnts", "op_plusUINT", "tblt_rules",
	} {
		if _, ok := regions.Bodies[name]; !ok {
			t.Errorf("missing custom body for %q", name)
		}
	}
}

func TestRegenerationPreservesCustomCode(t *testing.T) {
	ctx := buildContext(t)
	outDir := t.TempDir()

	// First generation, then a user edit inside a custom body.
	bundle, _, err := render.Generate(allWriters(ctx), outDir, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := bundle.WriteTo(outDir); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	implPath := filepath.Join(outDir, "agent", "adm_bpsec_impl.c")
	edited := strings.Replace(mustRead(t, implPath),
		roundtrip.BodyStart("get_num_good_tx_blks")+"\n",
		roundtrip.BodyStart("get_num_good_tx_blks")+"\n\treturn tnv_from_uvast(count());\n",
		1)
	if err := os.WriteFile(implPath, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	second, notices, err := render.Generate(allWriters(ctx), outDir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(notices) != 0 {
		t.Errorf("notices = %v", notices)
	}
	text, _ := second.Text("agent/adm_bpsec_impl.c")
	if !strings.Contains(text, "return tnv_from_uvast(count());") {
		t.Error("custom body lost on regeneration")
	}
}

func TestRegenerationPreservesTypeEnums(t *testing.T) {
	ctx := buildContext(t)
	outDir := t.TempDir()

	bundle, _, err := render.Generate(allWriters(ctx), outDir, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := bundle.WriteTo(outDir); err != nil {
		t.Fatal(err)
	}
	hdrPath := filepath.Join(outDir, "agent", "adm_bpsec_impl.h")
	edited := strings.Replace(mustRead(t, hdrPath),
		roundtrip.TypeEnumsStart+"\n",
		roundtrip.TypeEnumsStart+"\n\tAMP_TYPE_RULESET = 0x40,\n",
		1)
	if err := os.WriteFile(hdrPath, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	second, _, err := render.Generate(allWriters(ctx), outDir, true)
	if err != nil {
		t.Fatal(err)
	}
	text, _ := second.Text("agent/adm_bpsec_impl.h")
	if !strings.Contains(text, "AMP_TYPE_RULESET = 0x40,") {
		t.Error("type-enum region lost on regeneration")
	}
}

func TestRegenerationIdempotent(t *testing.T) {
	ctx := buildContext(t)
	outDir := t.TempDir()

	first, _, err := render.Generate(allWriters(ctx), outDir, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.WriteTo(outDir); err != nil {
		t.Fatal(err)
	}

	second, _, err := render.Generate(allWriters(ctx), outDir, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, path := range first.Paths() {
		a, _ := first.Text(path)
		b, _ := second.Text(path)
		if a != b {
			t.Errorf("%s differs on regeneration from unchanged schema", path)
		}
	}
}

func TestOrphanBodyReported(t *testing.T) {
	ctx := buildContext(t)
	outDir := t.TempDir()

	impl := render.NewImplC(ctx)
	bundle, _, err := render.Generate([]render.Writer{impl}, outDir, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := bundle.WriteTo(outDir); err != nil {
		t.Fatal(err)
	}

	// Append a body for a function the schema no longer declares.
	path := filepath.Join(outDir, "agent", "adm_bpsec_impl.c")
	stale := mustRead(t, path) + "\n" +
		roundtrip.BodyStart("get_retired") + "\n" +
		"\told();\n" +
		roundtrip.BodyStop("get_retired") + "\n"
	if err := os.WriteFile(path, []byte(stale), 0o644); err != nil {
		t.Fatal(err)
	}

	second, notices, err := render.Generate([]render.Writer{impl}, outDir, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(notices) != 1 || !strings.Contains(notices[0].Message, "get_retired") {
		t.Fatalf("notices = %v", notices)
	}
	text, _ := second.Text("agent/adm_bpsec_impl.c")
	if strings.Contains(text, "old();") {
		t.Error("orphan body leaked into output")
	}
}

func TestBundleWriteTo(t *testing.T) {
	outDir := t.TempDir()
	bundle := render.NewBundle()
	bundle.Add("agent/a.c", "alpha\n")
	bundle.Add("shared/adm/b.h", "beta\n")

	if err := bundle.WriteTo(outDir); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if got := mustRead(t, filepath.Join(outDir, "agent", "a.c")); got != "alpha\n" {
		t.Errorf("a.c = %q", got)
	}
	if got := mustRead(t, filepath.Join(outDir, "shared", "adm", "b.h")); got != "beta\n" {
		t.Errorf("b.h = %q", got)
	}
}

func TestSQLDialects(t *testing.T) {
	ctx := buildContext(t)
	for dialect, wantCall := range map[string]bool{"pgsql": true, "mysql": false} {
		bundle, _, err := render.Generate([]render.Writer{render.NewSQL(ctx, dialect)}, t.TempDir(), false)
		if err != nil {
			t.Fatal(err)
		}
		text, _ := bundle.Text("amp-sql/adm_bpsec.sql")
		hasCall := strings.Contains(text, "CALL SP__insert_obj_metadata")
		if hasCall != wantCall {
			t.Errorf("%s: CALL usage = %v, want %v", dialect, hasCall, wantCall)
		}
		if !strings.Contains(text, "SP__insert_adm_defined_namespace") {
			t.Errorf("%s: missing namespace insert", dialect)
		}
	}
}

func TestAgentAndMgrDiffer(t *testing.T) {
	ctx := buildContext(t)
	bundle, _, err := render.Generate(allWriters(ctx), t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	agent, _ := bundle.Text("agent/adm_bpsec_agent.c")
	mgr, _ := bundle.Text("mgr/adm_bpsec_mgr.c")

	if !strings.Contains(agent, "vec_idx_t g_dtn_bpsec_idx[11];") {
		t.Error("agent file must define the namespace index vector")
	}
	if !strings.Contains(agent, "dtn_bpsec_setup();") {
		t.Error("agent init must call setup")
	}
	if strings.Contains(mgr, "dtn_bpsec_setup();") {
		t.Error("mgr init must not call setup")
	}
	for _, text := range []string{agent, mgr} {
		if !strings.Contains(text, "void dtn_bpsec_init()") {
			t.Error("missing top-level init function")
		}
	}
}

func TestGenHDefinesObjectSymbols(t *testing.T) {
	bundle, _, err := render.Generate(allWriters(buildContext(t)), t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	text, _ := bundle.Text("shared/adm/adm_bpsec.h")
	for _, want := range []string{
		"#define ADM_ENUM_DTN_BPSEC 9",
		"#define DTN_BPSEC_EDD_NUM_GOOD_TX_BLKS 0x00",
		"#define DTN_BPSEC_EDD_NUM_BAD_TX_BLKS 0x01",
		"extern vec_idx_t g_dtn_bpsec_idx[11];",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
