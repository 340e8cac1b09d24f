// Package render emits the generated source artifacts from a resolved
// object model.
//
// Each artifact has a Writer that renders a skeleton into memory. The
// Generate pipeline runs every writer, applies round-trip merging where it
// applies, and collects results into a Bundle. Nothing touches the output
// directory until every artifact has rendered and merged successfully, so a
// fatal error anywhere leaves no partially regenerated tree behind.
package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"admgen/internal/ari"
	"admgen/internal/resolve"
	"admgen/internal/roundtrip"
	"admgen/internal/schema"
)

// Writer renders one artifact skeleton.
type Writer interface {
	// FilePath is the artifact path relative to the output root.
	FilePath() string
	// Write renders the skeleton text.
	Write(w io.Writer) error
	// RoundTrip reports whether the artifact carries custom-region markers
	// that must be preserved from a prior generation.
	RoundTrip() bool
}

// Notice is an informational message produced during generation, such as a
// preserved function body whose function no longer exists.
type Notice struct {
	Path    string
	Message string
}

func (n Notice) String() string { return fmt.Sprintf("%s: %s", n.Path, n.Message) }

// Bundle collects rendered artifacts as path to text, in memory.
type Bundle struct {
	files map[string]string
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{files: make(map[string]string)}
}

// Add stores text for the artifact at relative path.
func (b *Bundle) Add(path, text string) { b.files[path] = text }

// Paths returns all artifact paths in sorted order.
func (b *Bundle) Paths() []string {
	out := make([]string, 0, len(b.files))
	for p := range b.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Text returns the rendered text for path.
func (b *Bundle) Text(path string) (string, bool) {
	t, ok := b.files[path]
	return t, ok
}

// WriteTo writes every artifact beneath outDir, creating directories as
// needed, in sorted path order. Existing files are overwritten.
func (b *Bundle) WriteTo(outDir string) error {
	for _, rel := range b.Paths() {
		path := filepath.Join(outDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("render: create dir for %s: %w", rel, err)
		}
		if err := os.WriteFile(path, []byte(b.files[rel]), 0o644); err != nil {
			return fmt.Errorf("render: write %s: %w", rel, err)
		}
	}
	return nil
}

// Generate renders every writer, merging previously generated custom regions
// for round-trip artifacts when scrape is set. outDir is consulted only to
// read prior files; no file is written. The returned notices report dropped
// orphan bodies.
func Generate(writers []Writer, outDir string, scrape bool) (*Bundle, []Notice, error) {
	bundle := NewBundle()
	var notices []Notice
	for _, w := range writers {
		var buf bytes.Buffer
		if err := w.Write(&buf); err != nil {
			return nil, nil, fmt.Errorf("render: %s: %w", w.FilePath(), err)
		}
		text := buf.String()

		if w.RoundTrip() && scrape {
			prior := filepath.Join(outDir, filepath.FromSlash(w.FilePath()))
			regions, err := roundtrip.ExtractFile(prior)
			if err != nil {
				return nil, nil, err
			}
			merged, orphans, err := roundtrip.Merge(text, regions)
			if err != nil {
				return nil, nil, err
			}
			for _, name := range orphans {
				notices = append(notices, Notice{
					Path:    w.FilePath(),
					Message: fmt.Sprintf("dropped custom body for removed function %q", name),
				})
			}
			text = merged
		}
		bundle.Add(w.FilePath(), text)
	}
	return bundle, notices, nil
}

// ---------------------------------------------------------------------------
// Shared rendering context
// ---------------------------------------------------------------------------

// Context carries the resolved model through every writer.
type Context struct {
	Model *ari.Model
	Res   *resolve.Resolution
}

// NsNorm returns the normalized namespace name.
func (c *Context) NsNorm() string { return c.Model.Ns.Norm() }

// Name returns the schema's normalized short name.
func (c *Context) Name() string { return c.Model.ADM.Name() }

// Symbol returns the generated C macro name for an object.
func (c *Context) Symbol(cat schema.Category, name string) string {
	return ari.Symbol(c.NsNorm(), cat, name)
}

// Function naming follows the runtime's calling conventions: every category
// of implemented object has a fixed signature shape.

// FuncName returns the basename and full name of an object's implementation
// function, e.g. ("get_num_rules", "dtn_bpsec_get_num_rules").
func (c *Context) FuncName(cat schema.Category, obj *schema.Object) (base, full string) {
	switch cat {
	case schema.Meta:
		base = "meta_" + obj.Name
	case schema.Edd, schema.Const:
		base = "get_" + obj.Name
	default:
		base = cat.Short() + "_" + obj.Name
	}
	return base, c.NsNorm() + "_" + base
}

// FuncSignature returns the C signature for an object's implementation
// function.
func (c *Context) FuncSignature(cat schema.Category, obj *schema.Object) string {
	_, full := c.FuncName(cat, obj)
	switch cat {
	case schema.Ctrl:
		return fmt.Sprintf("tnv_t *%s(eid_t *def_mgr, tnvc_t *parms, int8_t *status)", full)
	case schema.Oper:
		return fmt.Sprintf("tnv_t *%s(vector_t *stack)", full)
	case schema.Tblt:
		return fmt.Sprintf("tbl_t *%s(ari_t *id)", full)
	default:
		return fmt.Sprintf("tnv_t *%s(tnvc_t *parms)", full)
	}
}

// fileHeader is the banner written at the top of every generated file. It
// deliberately carries no timestamp so regeneration from an unchanged schema
// is byte-identical.
func fileHeader(w io.Writer, filename, kind string) {
	fmt.Fprintf(w, `/****************************************************************************
 **
 ** File Name: %s
 **
 ** Description: Auto-generated %s file.
 **
 ****************************************************************************/

`, filename, kind)
}

// includes writes #include lines for the given files followed by a blank
// line.
func includes(w io.Writer, files []string) {
	for _, f := range files {
		fmt.Fprintf(w, "#include \"%s\"\n", f)
	}
	fmt.Fprintln(w)
}

// commentHeader writes the wide boxed section comment used between major
// file sections.
func commentHeader(w io.Writer, name string) {
	const width = 93
	pad := (width - len(name)) / 2
	line := "+" + repeat('-', width) + "+"
	inner := "|" + repeat(' ', pad) + name + repeat(' ', width-pad-len(name)) + "+"
	fmt.Fprintf(w, "\n/*\n * %s\n * %s\n * %s\n */\n", line, inner, line)
}

func repeat(ch byte, n int) string {
	return string(bytes.Repeat([]byte{ch}, n))
}
