package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Intercept bool
	Patch     bool
	Snapshot  bool
	Lifecycle bool
	Identity  bool
}

var d *debug

func init() {
	d = &debug{}
	d.Intercept = boolEnv("ST_DEBUG_INTERCEPT")
	d.Patch = boolEnv("ST_DEBUG_PATCH")
	d.Snapshot = boolEnv("ST_DEBUG_SNAPSHOT")
	d.Lifecycle = boolEnv("ST_DEBUG_LIFECYCLE")
	d.Identity = boolEnv("ST_DEBUG_IDENTITY")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Intercept() bool {
	return d.Intercept
}
func Patch() bool {
	return d.Patch
}
func Snapshot() bool {
	return d.Snapshot
}
func Lifecycle() bool {
	return d.Lifecycle
}
func Identity() bool {
	return d.Identity
}
