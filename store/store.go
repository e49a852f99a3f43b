// Package store wires a declared type into a usable state tree: one live
// root, a patch hub fanning out every committed edit, and snapshot and
// patch replay entry points. The core mutation path is single threaded; the
// store adds the one lock that lets server code drive it from sessions.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/query"
	"github.com/statetree/go-statetree/tree"
	"github.com/statetree/go-statetree/types"
)

// Spec configures a store.
type Spec struct {
	// Type is the root type, typically a types.MapType.
	Type types.Type

	// Initial is the root's initial snapshot; nil means the type default.
	Initial any

	Log *slog.Logger
}

// Store owns one live state tree.
type Store struct {
	spec Spec

	mu   sync.Mutex
	root types.Instance
	hub  *hub
}

// New builds the live root from the spec's type and initial snapshot.
func New(spec *Spec) (*Store, error) {
	if spec.Type == nil {
		return nil, fmt.Errorf("store: no type given")
	}
	if spec.Log == nil {
		spec.Log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slogLevel(),
		}))
	}
	root, err := spec.Type.Instantiate(tree.NewRoot(), "", spec.Initial)
	if err != nil {
		return nil, err
	}
	s := &Store{spec: *spec, root: root, hub: newHub()}
	root.Node().OnPatch(func(p patch.Patch) {
		s.spec.Log.Debug("committed", "op", string(p.Op), "path", p.Path)
		s.hub.broadcast(p)
	})
	return s, nil
}

func slogLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Root returns the live root instance.
func (s *Store) Root() types.Instance {
	return s.root
}

// Snapshot exports the root's current plain snapshot.
func (s *Store) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root.Snapshot()
}

// ApplySnapshot full-replaces the tree's content, preserving child identity
// for keys that persist.
func (s *Store) ApplySnapshot(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.root.(types.Container)
	if !ok {
		return fmt.Errorf("root %s does not accept snapshots", s.root.Type().Describe())
	}
	return c.ApplySnapshot(v)
}

// ApplyPatches replays foreign patches in order, stopping at the first
// failure. Patches already applied stay applied; the caller holds the
// ordering guarantee across a batch.
func (s *Store) ApplyPatches(patches []patch.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.root.(types.Container)
	if !ok {
		return fmt.Errorf("root %s does not accept patches", s.root.Type().Describe())
	}
	for i, p := range patches {
		if err := c.ApplyPatch(p); err != nil {
			return fmt.Errorf("patch %d (%s %q): %w", i, p.Op, p.Path, err)
		}
	}
	return nil
}

// Mutate runs f against the live root under the store lock. Server code
// uses it to keep the single-threaded core single threaded.
func (s *Store) Mutate(f func(root types.Instance) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.root)
}

// OnPatch subscribes to every committed patch. The returned cancel is safe
// to call more than once.
func (s *Store) OnPatch(f func(patch.Patch)) func() {
	return s.hub.subscribe(f)
}

// Query runs a read-only expression against the current snapshot.
func (s *Store) Query(src string) (any, error) {
	return query.Run(src, s.Snapshot())
}

// Protect write-protects the tree; every direct mutation fails with a
// not-writable error until Unprotect.
func (s *Store) Protect() {
	s.root.Node().Protect()
}

// Unprotect re-enables direct mutation.
func (s *Store) Unprotect() {
	s.root.Node().Unprotect()
}

// Log returns the store's logger.
func (s *Store) Log() *slog.Logger {
	return s.spec.Log
}
