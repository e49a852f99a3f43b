package patch

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEscapeKey(t *testing.T) {
	tests := []struct {
		key string
		esc string
	}{
		{key: "plain", esc: "plain"},
		{key: "a/b", esc: "a~1b"},
		{key: "a~b", esc: "a~0b"},
		{key: "~/", esc: "~0~1"},
		{key: "~1", esc: "~01"},
		{key: "", esc: ""},
	}
	for _, tc := range tests {
		if got := EscapeKey(tc.key); got != tc.esc {
			t.Errorf("EscapeKey(%q) = %q, want %q", tc.key, got, tc.esc)
		}
		if got := UnescapeKey(tc.esc); got != tc.key {
			t.Errorf("UnescapeKey(%q) = %q, want %q", tc.esc, got, tc.key)
		}
	}
}

func TestPrefixAndSplit(t *testing.T) {
	p := Patch{Op: OpAdd, Path: "task"}
	p = p.Prefix("18").Prefix("todo/list")
	if p.Path != "todo~1list/18/task" {
		t.Fatalf("path = %q", p.Path)
	}
	head, rest := p.Split()
	if head != "todo/list" || rest != "18/task" {
		t.Errorf("split = %q, %q", head, rest)
	}
	head, rest = Patch{Path: "only~0key"}.Split()
	if head != "only~key" || rest != "" {
		t.Errorf("split = %q, %q", head, rest)
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		doc     any
		patches []Patch
		want    any
		wantErr bool
	}{
		{
			name: "add and replace",
			doc:  map[string]any{"a": float64(1)},
			patches: []Patch{
				{Op: OpAdd, Path: "b", Value: float64(2)},
				{Op: OpReplace, Path: "a", Value: float64(3), OldValue: float64(1)},
			},
			want: map[string]any{"a": float64(3), "b": float64(2)},
		},
		{
			name: "remove",
			doc:  map[string]any{"a": float64(1), "b": float64(2)},
			patches: []Patch{
				{Op: OpRemove, Path: "a", OldValue: float64(1)},
			},
			want: map[string]any{"b": float64(2)},
		},
		{
			name: "nested escaped path",
			doc:  map[string]any{"a/b": map[string]any{"x": "old"}},
			patches: []Patch{
				{Op: OpReplace, Path: "a~1b/x", Value: "new"},
			},
			want: map[string]any{"a/b": map[string]any{"x": "new"}},
		},
		{
			name: "remove of absent key fails",
			doc:  map[string]any{},
			patches: []Patch{
				{Op: OpRemove, Path: "missing"},
			},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Apply(tc.doc, tc.patches)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("result (-want +got):\n%s", diff)
			}
		})
	}
}
