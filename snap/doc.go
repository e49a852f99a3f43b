// Package snap works with plain snapshot values: the serializable, JSON-shaped
// form of every live value in a state tree. A snapshot is an ordinary Go value
// built from map[string]any, []any, string, float64, int64, int, bool and nil.
//
// Snapshots carry no liveness, identity or change tracking. They are what
// crosses process boundaries, what gets persisted, and what patches are
// expressed against.
package snap
