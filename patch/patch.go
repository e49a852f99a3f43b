// Package patch defines the structural edit format emitted by live state
// trees: one add, replace or remove per key transition, addressed by a
// JSON-pointer style path whose segments escape `~` as `~0` and `/` as `~1`.
package patch

import "strings"

type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Patch describes exactly one key's transition. Paths are relative to the
// node that emitted the patch; bubbling up the tree prefixes parent segments.
type Patch struct {
	Op       Op     `json:"op"`
	Path     string `json:"path"`
	Value    any    `json:"value,omitempty"`
	OldValue any    `json:"oldValue,omitempty"`
}

var (
	escaper   = strings.NewReplacer("~", "~0", "/", "~1")
	unescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// EscapeKey escapes a single map key for use as a path segment.
func EscapeKey(key string) string {
	return escaper.Replace(key)
}

// UnescapeKey reverses EscapeKey.
func UnescapeKey(seg string) string {
	return unescaper.Replace(seg)
}

// Prefix returns p re-addressed from one level further up the tree, under
// the (unescaped) parent segment sub.
func (p Patch) Prefix(sub string) Patch {
	pre := EscapeKey(sub)
	if p.Path == "" {
		p.Path = pre
	} else {
		p.Path = pre + "/" + p.Path
	}
	return p
}

// Split returns the first segment of p's path, unescaped, and the remainder.
func (p Patch) Split() (string, string) {
	i := strings.IndexByte(p.Path, '/')
	if i < 0 {
		return UnescapeKey(p.Path), ""
	}
	return UnescapeKey(p.Path[:i]), p.Path[i+1:]
}
