package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"admgen/internal/ari"
	"admgen/internal/config"
	"admgen/internal/registry"
	"admgen/internal/render"
	"admgen/internal/resolve"
	"admgen/internal/schema"
)

// usageError marks a command-line mistake. main exits 1 for these and 2 for
// load and generation failures.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

var commands = []command{
	{
		name:  "generate",
		short: "Generate agent, manager, and SQL artifacts from an ADM schema",
		usage: "admgen generate [flags] <admfile>",
		long: `Generate all source artifacts for an ADM schema.

The schema is loaded and validated, every object is assigned its canonical
identifier, and every cross-reference is resolved before any file is
rendered. With --scrape, custom regions of previously generated files are
preserved. No output file is written unless the entire run succeeds.

Flags:
  -o, --out dir       output directory (default ./)
  --scrape            preserve custom regions from prior generated files
  --only-sql          produce only the SQL artifact
  --only-ch           produce only the C and header artifacts
  --nickname n        namespace nickname for this run
  --update-registry   persist the nickname to the registry
  --registry path     registry file (default ~/.admgen/registry.yaml)
  --no-input          never prompt; fail if the nickname is unknown
`,
		run: runGenerate,
	},
	{
		name:  "registry",
		short: "Inspect or edit the namespace nickname registry",
		usage: "admgen registry [--registry path] list | set <namespace> <nickname>",
		long: `List or edit namespace-nickname bindings.

"list" prints every binding. "set" binds a namespace to a nickname,
rebinding explicitly if either side is already bound.
`,
		run: runRegistry,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "admgen — ADM source artifact generator\n\n")
	fmt.Fprintf(w, "Usage:\n  admgen <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'admgen help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "admgen: unknown command %q\n\nRun 'admgen help' for usage.\n", name)
}

func dispatch(args []string) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(os.Stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(os.Stdout, args[1])
		} else {
			printUsage(os.Stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	return usagef("unknown command %q\n\nRun 'admgen help' for usage.", args[0])
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

type generateOpts struct {
	out            string
	scrape         bool
	onlySQL        bool
	onlyCH         bool
	nickname       int64
	nicknameSet    bool
	updateRegistry bool
	registryPath   string
	noInput        bool
}

func parseGenerateFlags(args []string) (*generateOpts, string, error) {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	opts := &generateOpts{}
	var nickname string
	fs.StringVar(&opts.out, "o", "", "output directory")
	fs.StringVar(&opts.out, "out", "", "output directory")
	fs.BoolVar(&opts.scrape, "scrape", false, "preserve custom regions from prior files")
	fs.BoolVar(&opts.onlySQL, "only-sql", false, "produce only the SQL artifact")
	fs.BoolVar(&opts.onlyCH, "only-ch", false, "produce only the C and header artifacts")
	fs.StringVar(&nickname, "nickname", "", "namespace nickname for this run")
	fs.BoolVar(&opts.updateRegistry, "update-registry", false, "persist the nickname")
	fs.StringVar(&opts.registryPath, "registry", "", "registry file path")
	fs.BoolVar(&opts.noInput, "no-input", false, "never prompt interactively")
	if err := fs.Parse(args); err != nil {
		return nil, "", usageError{msg: err.Error()}
	}
	if fs.NArg() < 1 {
		return nil, "", usagef("usage: admgen generate [flags] <admfile>")
	}
	if opts.onlySQL && opts.onlyCH {
		return nil, "", usagef("--only-sql and --only-ch are mutually exclusive")
	}
	if nickname != "" {
		n, err := strconv.ParseInt(nickname, 10, 64)
		if err != nil {
			return nil, "", usagef("--nickname %q is not an integer", nickname)
		}
		opts.nickname = n
		opts.nicknameSet = true
	}
	return opts, fs.Arg(0), nil
}

func runGenerate(args []string) error {
	opts, admFile, err := parseGenerateFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(filepath.Dir(admFile))
	if err != nil {
		return err
	}

	regPath := opts.registryPath
	if regPath == "" {
		fallback, err := registry.DefaultPath()
		if err != nil {
			return err
		}
		regPath = cfg.RegistryPath(fallback)
	}
	reg, err := registry.Load(regPath)
	if err != nil {
		return err
	}

	fmt.Printf("loading %s...\n", admFile)
	adm, err := schema.Load(admFile)
	if err != nil {
		return err
	}
	ns := adm.Namespace()

	nickname, err := resolveNickname(adm, reg, opts)
	if err != nil {
		return err
	}
	if opts.updateRegistry {
		if opts.nicknameSet {
			reg.Update(ns.Norm(), nickname)
		} else if err := reg.Register(ns.Norm(), nickname); err != nil {
			return err
		}
	}

	model, err := ari.Resolve(adm, nickname)
	if err != nil {
		return err
	}
	set := resolve.NewModelSet(model)
	if err := loadUses(set, adm, reg, filepath.Dir(admFile)); err != nil {
		return err
	}
	res, err := resolve.Resolve(set)
	if err != nil {
		return err
	}

	ctx := &render.Context{Model: model, Res: res}
	var writers []render.Writer
	if !opts.onlySQL {
		writers = append(writers,
			render.NewImplH(ctx),
			render.NewImplC(ctx),
			render.NewGenH(ctx),
			render.NewMgrC(ctx),
			render.NewAgentC(ctx),
		)
	}
	if !opts.onlyCH {
		writers = append(writers, render.NewSQL(ctx, cfg.SQLDialect("pgsql")))
	}

	outDir := opts.out
	if outDir == "" {
		outDir = cfg.OutDir("./")
	}
	bundle, notices, err := render.Generate(writers, outDir, opts.scrape)
	if err != nil {
		return err
	}
	for _, n := range notices {
		fmt.Fprintf(os.Stderr, "notice: %s\n", n)
	}
	if err := bundle.WriteTo(outDir); err != nil {
		return err
	}
	for _, p := range bundle.Paths() {
		fmt.Printf("  wrote %s\n", filepath.Join(outDir, p))
	}

	if opts.updateRegistry && reg.Dirty() {
		if err := reg.Save(regPath); err != nil {
			return err
		}
		fmt.Printf("registry updated: %s\n", regPath)
	}
	return nil
}

// resolveNickname determines the namespace nickname for this run. Order:
// explicit flag, the schema's own declared enum, the registry. With none of
// those the run fails unless an interactive prompt is allowed.
func resolveNickname(adm *schema.ADM, reg *registry.Registry, opts *generateOpts) (int64, error) {
	if opts.nicknameSet {
		return opts.nickname, nil
	}
	if n, ok := adm.DeclaredNickname(); ok {
		return n, nil
	}
	ns := adm.Namespace().Norm()
	if n, ok := reg.Lookup(ns); ok {
		return n, nil
	}
	if opts.noInput {
		return 0, fmt.Errorf("namespace %q is not registered; pass --nickname or register it", ns)
	}
	return promptNickname(ns)
}

// loadUses loads the models of every namespace the schema declares under
// "uses", when a schema file for it sits beside the one being generated.
// Each used namespace must already have a registry entry or declare its own
// nickname.
func loadUses(set *resolve.ModelSet, adm *schema.ADM, reg *registry.Registry, dir string) error {
	for _, use := range adm.Uses {
		norm := schema.Namespace{Name: use}.Norm()
		path, ok := findSchemaFile(dir, norm)
		if !ok {
			continue
		}
		used, err := schema.Load(path)
		if err != nil {
			return fmt.Errorf("uses %q: %w", use, err)
		}
		nick, ok := used.DeclaredNickname()
		if !ok {
			nick, ok = reg.Lookup(used.Namespace().Norm())
			if !ok {
				return fmt.Errorf("uses %q: namespace is not registered", use)
			}
		}
		model, err := ari.Resolve(used, nick)
		if err != nil {
			return fmt.Errorf("uses %q: %w", use, err)
		}
		set.Add(model)
	}
	return nil
}

// findSchemaFile probes the conventional file names for a namespace's schema.
func findSchemaFile(dir, norm string) (string, bool) {
	for _, name := range []string{
		norm + ".yaml", norm + ".json",
		"adm_" + norm + ".yaml", "adm_" + norm + ".json",
	} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// registry
// ---------------------------------------------------------------------------

func runRegistry(args []string) error {
	fs := flag.NewFlagSet("registry", flag.ContinueOnError)
	regPath := fs.String("registry", "", "registry file path")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	path := *regPath
	if path == "" {
		var err error
		path, err = registry.DefaultPath()
		if err != nil {
			return err
		}
	}
	reg, err := registry.Load(path)
	if err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return usagef("usage: admgen registry list | set <namespace> <nickname>")
	}
	switch rest[0] {
	case "list":
		for _, e := range reg.Entries() {
			fmt.Printf("%-40s %d\n", e.Namespace, e.Nickname)
		}
		return nil
	case "set":
		if len(rest) < 3 {
			return usagef("usage: admgen registry set <namespace> <nickname>")
		}
		nick, err := strconv.ParseInt(rest[2], 10, 64)
		if err != nil {
			return usagef("nickname %q is not an integer", rest[2])
		}
		reg.Update(rest[1], nick)
		if err := reg.Save(path); err != nil {
			return err
		}
		fmt.Printf("bound %q to %d\n", rest[1], nick)
		return nil
	default:
		return usagef("unknown registry action %q", rest[0])
	}
}

// ---------------------------------------------------------------------------
// TUI prompt
// ---------------------------------------------------------------------------

// promptModel is a bubbletea model asking for one nickname value.
type promptModel struct {
	ns    string
	input textinput.Model
	done  bool
}

func newPromptModel(ns string) promptModel {
	ti := textinput.New()
	ti.Placeholder = "nickname (integer)"
	ti.CharLimit = 20
	ti.Focus()
	return promptModel{ns: ns, input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("namespace %q is not registered.\nNickname: %s\n", m.ns, m.input.View())
}

// promptNickname asks interactively for an unregistered namespace's nickname.
func promptNickname(ns string) (int64, error) {
	p := tea.NewProgram(newPromptModel(ns))
	result, err := p.Run()
	if err != nil {
		return 0, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return 0, errors.New("prompt cancelled")
	}
	n, err := strconv.ParseInt(final.input.Value(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("nickname %q is not an integer", final.input.Value())
	}
	return n, nil
}

// Exit codes: 0 success, 1 usage error, 2 load or generation failure.
func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "admgen: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
