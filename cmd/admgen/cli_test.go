package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"admgen/internal/registry"
	"admgen/internal/schema"
)

const testSchema = `
Mdat:
  - {name: name, type: STR, value: bpsec}
  - {name: namespace, type: STR, value: DTN/bpsec}
  - {name: version, type: STR, value: v0.1}
  - {name: organization, type: STR, value: JHUAPL}
Edd:
  - {name: num_rules, type: UINT}
Ctrl:
  - {name: rst_all_cnts}
`

// helpText returns the overall usage listing.
func helpText() string {
	var sb strings.Builder
	printUsage(&sb)
	return sb.String()
}

func TestHelpContainsAllCommands(t *testing.T) {
	help := helpText()
	for _, cmd := range commands {
		if !strings.Contains(help, cmd.name) {
			t.Errorf("help output missing command %q", cmd.name)
		}
		if !strings.Contains(help, cmd.short) {
			t.Errorf("help output missing short description for %q", cmd.name)
		}
	}
}

func TestLongHelpForKnownCommands(t *testing.T) {
	for _, cmd := range commands {
		t.Run(cmd.name, func(t *testing.T) {
			var sb strings.Builder
			printCommandHelp(&sb, cmd.name)
			if !strings.Contains(sb.String(), cmd.usage) {
				t.Errorf("long help for %q missing usage line %q", cmd.name, cmd.usage)
			}
		})
	}
}

func TestLongHelpUnknownCommand(t *testing.T) {
	var sb strings.Builder
	printCommandHelp(&sb, "no-such-command")
	if !strings.Contains(sb.String(), "unknown") {
		t.Errorf("expected unknown-command message, got: %s", sb.String())
	}
}

func TestDispatchNoArgsPrintsHelp(t *testing.T) {
	if err := dispatch([]string{}); err != nil {
		t.Errorf("dispatch() with no args returned error: %v", err)
	}
}

func TestDispatchHelpFlag(t *testing.T) {
	for _, flag := range []string{"--help", "-h"} {
		t.Run(flag, func(t *testing.T) {
			if err := dispatch([]string{flag}); err != nil {
				t.Errorf("dispatch(%q) returned error: %v", flag, err)
			}
		})
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	err := dispatch([]string{"no-such-command-xyz"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown") {
		t.Errorf("expected 'unknown' in error, got: %v", err)
	}
}

func TestDispatchKnownSubcommandBadArgs(t *testing.T) {
	// Wrong args reach the subcommand and return its usage error, never an
	// "unknown command" error.
	err := dispatch([]string{"generate"})
	if err == nil {
		t.Fatal("expected usage error for generate with no schema file")
	}
	if strings.Contains(err.Error(), "unknown command") {
		t.Errorf("dispatch reached wrong path: %v", err)
	}
}

func TestParseGenerateFlags(t *testing.T) {
	opts, file, err := parseGenerateFlags([]string{
		"-o", "out", "--scrape", "--nickname", "9", "--no-input", "adm.yaml",
	})
	if err != nil {
		t.Fatalf("parseGenerateFlags: %v", err)
	}
	if file != "adm.yaml" {
		t.Errorf("file = %q", file)
	}
	if opts.out != "out" || !opts.scrape || !opts.noInput {
		t.Errorf("opts = %+v", opts)
	}
	if !opts.nicknameSet || opts.nickname != 9 {
		t.Errorf("nickname = %d, set = %v", opts.nickname, opts.nicknameSet)
	}
}

func TestParseGenerateFlagsExclusiveOutputs(t *testing.T) {
	_, _, err := parseGenerateFlags([]string{"--only-sql", "--only-ch", "adm.yaml"})
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("expected mutual-exclusion error, got %v", err)
	}
}

func TestParseGenerateFlagsBadNickname(t *testing.T) {
	_, _, err := parseGenerateFlags([]string{"--nickname", "ten", "adm.yaml"})
	if err == nil || !strings.Contains(err.Error(), "not an integer") {
		t.Errorf("expected integer error, got %v", err)
	}
}

func TestResolveNicknamePrecedence(t *testing.T) {
	adm, err := schema.Parse([]byte(testSchema))
	if err != nil {
		t.Fatal(err)
	}
	reg := registry.New()
	reg.Update("dtn_bpsec", 7)

	// Explicit flag wins over the registry.
	n, err := resolveNickname(adm, reg, &generateOpts{nickname: 3, nicknameSet: true})
	if err != nil || n != 3 {
		t.Errorf("flag precedence: got %d, %v", n, err)
	}

	// Registry is consulted when no flag and no declared enum.
	n, err = resolveNickname(adm, reg, &generateOpts{noInput: true})
	if err != nil || n != 7 {
		t.Errorf("registry lookup: got %d, %v", n, err)
	}

	// Declared enum beats the registry.
	declared := strings.Replace(testSchema,
		"- {name: organization, type: STR, value: JHUAPL}",
		"- {name: organization, type: STR, value: JHUAPL}\n  - {name: enum, type: UINT, value: \"5\"}",
		1)
	admDecl, err := schema.Parse([]byte(declared))
	if err != nil {
		t.Fatal(err)
	}
	n, err = resolveNickname(admDecl, reg, &generateOpts{noInput: true})
	if err != nil || n != 5 {
		t.Errorf("declared enum: got %d, %v", n, err)
	}
}

func TestResolveNicknameUnregisteredNoInput(t *testing.T) {
	adm, err := schema.Parse([]byte(testSchema))
	if err != nil {
		t.Fatal(err)
	}
	_, err = resolveNickname(adm, registry.New(), &generateOpts{noInput: true})
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not-registered error, got %v", err)
	}
}

// runGenerateIn runs the generate command against a schema written to its own
// temp directory and returns that directory.
func runGenerateIn(t *testing.T, extraFlags ...string) string {
	t.Helper()
	dir := t.TempDir()
	admFile := filepath.Join(dir, "bpsec.yaml")
	if err := os.WriteFile(admFile, []byte(testSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	regPath := filepath.Join(dir, "registry.yaml")
	if err := os.WriteFile(regPath, []byte("dtn_bpsec: 9\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	args := append([]string{
		"-o", dir, "--no-input", "--registry", regPath,
	}, extraFlags...)
	args = append(args, admFile)
	if err := runGenerate(args); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}
	return dir
}

func TestGenerateWritesAllArtifacts(t *testing.T) {
	dir := runGenerateIn(t)
	for _, rel := range []string{
		"agent/adm_bpsec_agent.c",
		"agent/adm_bpsec_impl.c",
		"agent/adm_bpsec_impl.h",
		"amp-sql/adm_bpsec.sql",
		"mgr/adm_bpsec_mgr.c",
		"shared/adm/adm_bpsec.h",
	} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing artifact %s: %v", rel, err)
		}
	}
}

func TestGenerateOnlySQL(t *testing.T) {
	dir := runGenerateIn(t, "--only-sql")
	if _, err := os.Stat(filepath.Join(dir, "amp-sql", "adm_bpsec.sql")); err != nil {
		t.Errorf("missing SQL artifact: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "agent")); !os.IsNotExist(err) {
		t.Error("C artifacts written despite --only-sql")
	}
}

func TestGenerateOnlyCH(t *testing.T) {
	dir := runGenerateIn(t, "--only-ch")
	if _, err := os.Stat(filepath.Join(dir, "amp-sql")); !os.IsNotExist(err) {
		t.Error("SQL artifact written despite --only-ch")
	}
	if _, err := os.Stat(filepath.Join(dir, "agent", "adm_bpsec_impl.c")); err != nil {
		t.Errorf("missing C artifact: %v", err)
	}
}

func TestGenerateFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	bad := testSchema + `
Rptt:
  - name: r
    definition:
      - edd.nonexistent
`
	admFile := filepath.Join(dir, "bpsec.yaml")
	if err := os.WriteFile(admFile, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	regPath := filepath.Join(dir, "registry.yaml")
	err := runGenerate([]string{"-o", dir, "--no-input", "--registry", regPath, "--nickname", "9", admFile})
	if err == nil {
		t.Fatal("expected resolution failure")
	}
	for _, sub := range []string{"agent", "mgr", "shared", "amp-sql"} {
		if _, statErr := os.Stat(filepath.Join(dir, sub)); !os.IsNotExist(statErr) {
			t.Errorf("partial output %s written despite failure", sub)
		}
	}
}

func TestGenerateUpdateRegistry(t *testing.T) {
	dir := t.TempDir()
	admFile := filepath.Join(dir, "bpsec.yaml")
	if err := os.WriteFile(admFile, []byte(testSchema), 0o644); err != nil {
		t.Fatal(err)
	}
	regPath := filepath.Join(dir, "registry.yaml")
	err := runGenerate([]string{
		"-o", dir, "--no-input", "--registry", regPath,
		"--nickname", "9", "--update-registry", admFile,
	})
	if err != nil {
		t.Fatalf("runGenerate: %v", err)
	}

	reg, err := registry.Load(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if nick, ok := reg.Lookup("dtn_bpsec"); !ok || nick != 9 {
		t.Errorf("registry binding = %d, %v; want 9, true", nick, ok)
	}
}

func TestRegistrySetAndList(t *testing.T) {
	regPath := filepath.Join(t.TempDir(), "registry.yaml")
	err := runRegistry([]string{"--registry", regPath, "set", "dtn_bpsec", "9"})
	if err != nil {
		t.Fatalf("registry set: %v", err)
	}
	if err := runRegistry([]string{"--registry", regPath, "list"}); err != nil {
		t.Errorf("registry list: %v", err)
	}
	if err := runRegistry([]string{"--registry", regPath, "set", "dtn_bpsec"}); err == nil {
		t.Error("expected usage error for set with missing nickname")
	}
}

func TestErrorClassification(t *testing.T) {
	// Command-line mistakes are usage errors (exit 1).
	usageCases := map[string]error{
		"unknown command":    dispatch([]string{"no-such-command-xyz"}),
		"missing schema":     dispatch([]string{"generate"}),
		"exclusive outputs":  dispatch([]string{"generate", "--only-sql", "--only-ch", "x.yaml"}),
		"bad nickname":       dispatch([]string{"generate", "--nickname", "ten", "x.yaml"}),
		"registry no action": dispatch([]string{"registry", "--registry", filepath.Join(t.TempDir(), "r.yaml")}),
	}
	var ue usageError
	for name, err := range usageCases {
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if !errors.As(err, &ue) {
			t.Errorf("%s: not classified as usage error: %v", name, err)
		}
	}

	// A failing pipeline is not a usage error (exit 2).
	dir := t.TempDir()
	missing := filepath.Join(dir, "absent.yaml")
	err := dispatch([]string{"generate", "--no-input", "--nickname", "9",
		"--registry", filepath.Join(dir, "registry.yaml"), missing})
	if err == nil {
		t.Fatal("expected load error for missing schema file")
	}
	if errors.As(err, &ue) {
		t.Errorf("load failure misclassified as usage error: %v", err)
	}
}

func TestFindSchemaFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "adm_dtn_other.yaml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, ok := findSchemaFile(dir, "dtn_other")
	if !ok || !strings.HasSuffix(path, "adm_dtn_other.yaml") {
		t.Errorf("findSchemaFile = %q, %v", path, ok)
	}
	if _, ok := findSchemaFile(dir, "dtn_missing"); ok {
		t.Error("expected no match for unprobed namespace")
	}
}
