// Package snapdiff computes the patch list separating two plain snapshots.
// Applying the result to the first snapshot with patch.Apply yields the
// second. Object keys are sequenced through a rune mapping so the diff
// engine works over key streams rather than whole values.
package snapdiff

import (
	"maps"
	"slices"
	"strconv"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/snap"
)

// Diff returns the patches that transform from into to. Paths are relative,
// with segments escaped per the patch package.
func Diff(from, to any) []patch.Patch {
	return diffAt("", from, to)
}

func diffAt(path string, from, to any) []patch.Patch {
	if snap.Equal(from, to) {
		return nil
	}
	fromObj, fok := snap.IsObject(from)
	toObj, tok := snap.IsObject(to)
	if fok && tok {
		return diffObject(path, fromObj, toObj)
	}
	fromArr, fok := from.([]any)
	toArr, tok := to.([]any)
	if fok && tok {
		return diffArray(path, fromArr, toArr)
	}
	return []patch.Patch{{Op: patch.OpReplace, Path: path, Value: to, OldValue: from}}
}

// diffObject sequences both key sets through a shared rune alphabet and
// lets the diff engine find deletions, insertions and stable keys.
func diffObject(path string, from, to map[string]any) []patch.Patch {
	fieldMap := map[string]rune{}
	runeMap := map[rune]string{}
	fromKeys := slices.Sorted(maps.Keys(from))
	toKeys := slices.Sorted(maps.Keys(to))
	fromRunes := mapKeysTo(fieldMap, runeMap, fromKeys)
	toRunes := mapKeysTo(fieldMap, runeMap, toKeys)
	diffCfg := diffpatch.New()
	diffs := diffCfg.DiffMainRunes(fromRunes, toRunes, false)
	var res []patch.Patch
	for i := range diffs {
		diff := &diffs[i]
		switch diff.Type {
		case diffpatch.DiffDelete:
			for _, r := range diff.Text {
				k := runeMap[r]
				res = append(res, patch.Patch{
					Op:       patch.OpRemove,
					Path:     join(path, k),
					OldValue: from[k],
				})
			}
		case diffpatch.DiffEqual:
			for _, r := range diff.Text {
				k := runeMap[r]
				res = append(res, diffAt(join(path, k), from[k], to[k])...)
			}
		case diffpatch.DiffInsert:
			for _, r := range diff.Text {
				k := runeMap[r]
				res = append(res, patch.Patch{
					Op:    patch.OpAdd,
					Path:  join(path, k),
					Value: to[k],
				})
			}
		}
	}
	return res
}

func diffArray(path string, from, to []any) []patch.Patch {
	var res []patch.Patch
	n := min(len(from), len(to))
	for i := range n {
		res = append(res, diffAt(join(path, strconv.Itoa(i)), from[i], to[i])...)
	}
	// removals run back to front so earlier indices stay valid on replay
	for i := len(from) - 1; i >= n; i-- {
		res = append(res, patch.Patch{
			Op:       patch.OpRemove,
			Path:     join(path, strconv.Itoa(i)),
			OldValue: from[i],
		})
	}
	for i := n; i < len(to); i++ {
		res = append(res, patch.Patch{
			Op:    patch.OpAdd,
			Path:  join(path, strconv.Itoa(i)),
			Value: to[i],
		})
	}
	return res
}

func mapKeysTo(m map[string]rune, im map[rune]string, keys []string) []rune {
	rs := make([]rune, len(keys))
	for i, k := range keys {
		r, ok := m[k]
		if !ok {
			r = rune(len(m))
			m[k] = r
			im[r] = k
		}
		rs[i] = r
	}
	return rs
}

func join(prefix, key string) string {
	seg := patch.EscapeKey(key)
	if prefix == "" {
		return seg
	}
	return prefix + "/" + seg
}
