package store

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/types"
)

func todoStore(t *testing.T, initial any) *Store {
	t.Helper()
	elem := types.Model("Todo",
		types.Field{Name: "id", Type: types.Identifier},
		types.Field{Name: "task", Type: types.String},
	)
	s, err := New(&Spec{
		Type:    types.MapOf(elem),
		Initial: initial,
		Log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSnapshot(t *testing.T) {
	initial := map[string]any{
		"1": map[string]any{"id": "1", "task": "one"},
	}
	s := todoStore(t, initial)
	if d := cmp.Diff(initial, s.Snapshot()); d != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", d)
	}
}

func TestPatchFanout(t *testing.T) {
	s := todoStore(t, nil)
	var a, b []patch.Patch
	cancelA := s.OnPatch(func(p patch.Patch) { a = append(a, p) })
	defer s.OnPatch(func(p patch.Patch) { b = append(b, p) })()

	err := s.Mutate(func(root types.Instance) error {
		m := root.(*types.MapInstance)
		return m.Set("1", map[string]any{"id": "1", "task": "one"})
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("fanout got %d/%d patches, want 1/1", len(a), len(b))
	}
	if a[0].Op != patch.OpAdd || a[0].Path != "1" {
		t.Errorf("got %s %q, want add \"1\"", a[0].Op, a[0].Path)
	}

	cancelA()
	cancelA() // cancel is idempotent
	err = s.Mutate(func(root types.Instance) error {
		_, err := root.(*types.MapInstance).Delete("1")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 1 {
		t.Errorf("cancelled subscriber still got patches: %d", len(a))
	}
	if len(b) != 2 {
		t.Errorf("live subscriber got %d patches, want 2", len(b))
	}
}

// A replica holding only the initial snapshot and the stream of committed
// patches reconstructs the live document exactly.
func TestReplicaReplay(t *testing.T) {
	s := todoStore(t, nil)
	replica := s.Snapshot()
	var log []patch.Patch
	defer s.OnPatch(func(p patch.Patch) { log = append(log, p) })()

	err := s.Mutate(func(root types.Instance) error {
		m := root.(*types.MapInstance)
		if err := m.Set("1", map[string]any{"id": "1", "task": "one"}); err != nil {
			return err
		}
		if err := m.Set("2", map[string]any{"id": "2", "task": "two"}); err != nil {
			return err
		}
		if err := m.Set("1", map[string]any{"id": "1", "task": "redo"}); err != nil {
			return err
		}
		_, err := m.Delete("2")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := patch.Apply(replica, log)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(s.Snapshot(), got); d != "" {
		t.Errorf("replica diverged (-live +replica):\n%s", d)
	}
}

func TestApplyPatches(t *testing.T) {
	s := todoStore(t, nil)
	patches := []patch.Patch{
		{Op: patch.OpAdd, Path: "1", Value: map[string]any{"id": "1", "task": "one"}},
		{Op: patch.OpReplace, Path: "1", Value: map[string]any{"id": "1", "task": "redo"}},
	}
	if err := s.ApplyPatches(patches); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"1": map[string]any{"id": "1", "task": "redo"},
	}
	if d := cmp.Diff(want, s.Snapshot()); d != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", d)
	}

	// A failing batch stops at the failure; earlier patches stay applied.
	bad := []patch.Patch{
		{Op: patch.OpRemove, Path: "1"},
		{Op: patch.OpAdd, Path: "2", Value: map[string]any{"task": 5}},
	}
	if err := s.ApplyPatches(bad); err == nil {
		t.Fatal("expected error for invalid value")
	}
	if d := cmp.Diff(map[string]any{}, s.Snapshot()); d != "" {
		t.Errorf("partial batch not applied (-want +got):\n%s", d)
	}
}

func TestApplySnapshotKeepsIdentity(t *testing.T) {
	s := todoStore(t, map[string]any{
		"1": map[string]any{"id": "1", "task": "one"},
		"2": map[string]any{"id": "2", "task": "two"},
	})
	var before types.Instance
	err := s.Mutate(func(root types.Instance) error {
		before, _ = root.(*types.MapInstance).Get("1")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	next := map[string]any{
		"1": map[string]any{"id": "1", "task": "still one"},
		"3": map[string]any{"id": "3", "task": "three"},
	}
	if err := s.ApplySnapshot(next); err != nil {
		t.Fatal(err)
	}
	var after types.Instance
	err = s.Mutate(func(root types.Instance) error {
		after, _ = root.(*types.MapInstance).Get("1")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Error("persisting key was re-materialized instead of reconciled")
	}
	if d := cmp.Diff(next, s.Snapshot()); d != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", d)
	}
}

func TestProtect(t *testing.T) {
	s := todoStore(t, nil)
	s.Protect()
	err := s.Mutate(func(root types.Instance) error {
		return root.(*types.MapInstance).Set("1", map[string]any{"id": "1", "task": "one"})
	})
	if !errors.Is(err, types.ErrNotWritable) {
		t.Fatalf("got %v, want ErrNotWritable", err)
	}
	s.Unprotect()
	err = s.Mutate(func(root types.Instance) error {
		return root.(*types.MapInstance).Set("1", map[string]any{"id": "1", "task": "one"})
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestQuery(t *testing.T) {
	s := todoStore(t, map[string]any{
		"1": map[string]any{"id": "1", "task": "one"},
		"2": map[string]any{"id": "2", "task": "two"},
	})
	got, err := s.Query(`len(root)`)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("len(root) = %v, want 2", got)
	}
}
