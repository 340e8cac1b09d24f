// Package registry manages the persistent namespace-nickname registry.
//
// The registry binds each normalized namespace name to a stable integer
// nickname used in every canonical identifier generated for that namespace.
// On disk it is a flat YAML map, one binding per line:
//
//	dtn_bpsec: 9
//	dtn_ion_admin: 7
//
// The file is read once at startup and rewritten at most once at the end of
// a run, and only when an update was requested.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrNotFound reports a lookup of an unregistered namespace.
var ErrNotFound = errors.New("namespace not registered")

// ErrCollision reports an attempt to bind a nickname already bound to a
// different namespace.
var ErrCollision = errors.New("nickname already bound")

// Registry is an in-memory view of the nickname file.
type Registry struct {
	byName map[string]int64
	byNick map[int64]string
	dirty  bool
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]int64),
		byNick: make(map[int64]string),
	}
}

// DefaultPath returns the conventional registry location,
// ~/.admgen/registry.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("registry: home dir: %w", err)
	}
	return filepath.Join(home, ".admgen", "registry.yaml"), nil
}

// Load reads the registry at path. A missing file yields an empty registry,
// not an error (first run).
func Load(path string) (*Registry, error) {
	r := New()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	var entries map[string]int64
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", path, err)
	}
	for ns, nick := range entries {
		if other, ok := r.byNick[nick]; ok && other != ns {
			return nil, fmt.Errorf("registry: %s: nickname %d bound to both %q and %q", path, nick, other, ns)
		}
		r.byName[ns] = nick
		r.byNick[nick] = ns
	}
	return r, nil
}

// Lookup returns the nickname bound to the normalized namespace ns.
func (r *Registry) Lookup(ns string) (int64, bool) {
	nick, ok := r.byName[ns]
	return nick, ok
}

// Register binds ns to nick. Re-registering an identical pair is a no-op;
// binding nick to a different namespace, or ns to a different nickname,
// fails with ErrCollision.
func (r *Registry) Register(ns string, nick int64) error {
	if cur, ok := r.byName[ns]; ok {
		if cur == nick {
			return nil
		}
		return fmt.Errorf("registry: %w: namespace %q already has nickname %d", ErrCollision, ns, cur)
	}
	if other, ok := r.byNick[nick]; ok {
		return fmt.Errorf("registry: %w: nickname %d belongs to %q", ErrCollision, nick, other)
	}
	r.byName[ns] = nick
	r.byNick[nick] = ns
	r.dirty = true
	return nil
}

// Update rebinds ns to nick unconditionally, releasing any previous binding
// of either side. Used only when the caller explicitly asks for an override.
func (r *Registry) Update(ns string, nick int64) {
	if cur, ok := r.byName[ns]; ok {
		delete(r.byNick, cur)
	}
	if other, ok := r.byNick[nick]; ok {
		delete(r.byName, other)
	}
	r.byName[ns] = nick
	r.byNick[nick] = ns
	r.dirty = true
}

// Dirty reports whether the registry has unsaved changes.
func (r *Registry) Dirty() bool { return r.dirty }

// Entry is one namespace-nickname binding.
type Entry struct {
	Namespace string
	Nickname  int64
}

// Entries returns all bindings sorted by namespace name.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.byName))
	for ns, nick := range r.byName {
		out = append(out, Entry{Namespace: ns, Nickname: nick})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out
}

// Save writes the registry to path atomically (temp file then rename), so a
// failed run cannot leave a corrupt registry behind.
func (r *Registry) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("registry: create dir: %w", err)
	}
	data, err := yaml.Marshal(r.byName)
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".registry-*")
	if err != nil {
		return fmt.Errorf("registry: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("registry: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("registry: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("registry: rename: %w", err)
	}
	r.dirty = false
	return nil
}
