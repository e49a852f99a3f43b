package query

import (
	"testing"
)

func TestRun(t *testing.T) {
	snapshot := map[string]any{
		"todos": map[string]any{
			"1": map[string]any{"id": "1", "task": "one", "done": true},
			"2": map[string]any{"id": "2", "task": "two", "done": false},
		},
		"owner": "pat",
	}
	tests := []struct {
		name string
		src  string
		want any
	}{
		{name: "top level key", src: `owner`, want: "pat"},
		{name: "root binding", src: `root.owner`, want: "pat"},
		{name: "nested access", src: `todos["1"].task`, want: "one"},
		{name: "count", src: `len(todos)`, want: 2},
		{
			name: "filter",
			src:  `len(filter(values(todos), .done))`,
			want: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Run(tc.src, snapshot)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("%s = %v (%T), want %v", tc.src, got, got, tc.want)
			}
		})
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile(`len(`); err == nil {
		t.Error("expected compile error")
	}
}

func TestCompiledReuse(t *testing.T) {
	q, err := Compile(`root.n`)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []any{float64(1), float64(2)} {
		got, err := q.Run(map[string]any{"n": want})
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("run %d = %v, want %v", i, got, want)
		}
	}
}
