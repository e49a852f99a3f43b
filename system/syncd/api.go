// Package syncd serves one live state tree to replicas over TCP. Sessions
// speak newline-delimited JSON: a replica says hello, pulls a full
// snapshot, watches for committed patches, and pushes its own patches
// through the tree's mutation pathway.
package syncd

import "github.com/statetree/go-statetree/patch"

// Request ops.
const (
	OpHello    = "hello"
	OpSnapshot = "snapshot"
	OpPatch    = "patch"
	OpWatch    = "watch"
	OpUnwatch  = "unwatch"
)

// Request is one client message.
type Request struct {
	ID      int64         `json:"id"`
	Op      string        `json:"op"`
	Patches []patch.Patch `json:"patches,omitempty"`
}

// Response answers a request by ID, or carries a watch event when Event is
// set (event responses have ID 0).
type Response struct {
	ID       int64        `json:"id,omitempty"`
	OK       bool         `json:"ok"`
	Error    string       `json:"error,omitempty"`
	Server   string       `json:"server,omitempty"`
	Snapshot any          `json:"snapshot"`
	Event    *patch.Patch `json:"event,omitempty"`
}
