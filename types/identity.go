package types

import (
	"fmt"

	"github.com/statetree/go-statetree/debug"
)

// resolveIdentity enforces the collection's identity policy for a child
// about to be committed under expectedKey. It runs before commit, and for
// already-live candidates before they can displace an existing child's
// tree attachment.
//
// The first child ever seen by the declared type decides the policy: a
// structured child with a declared identifying attribute flips the type to
// identified mode and records the attribute; anything else flips it to
// unidentified, permanently. The decision is type-level state: it outlives
// this instance and binds every other instance of the same declared type,
// and it stands even when the current edit later aborts, because it derives
// from the declared element type rather than from the particular value.
func (t *MapType) resolveIdentity(expectedKey string, child Instance) error {
	idf, structured := child.(Identifiable)
	if t.mode == modeUnknown {
		if structured && idf.IdentifierAttribute() != "" {
			t.mode = modeIdentified
			t.identAttr = idf.IdentifierAttribute()
		} else {
			t.mode = modeUnidentified
		}
		if debug.Identity() {
			debug.Logf("%s resolved mode=%d attr=%q\n", t.Describe(), t.mode, t.identAttr)
		}
	}
	if t.mode != modeIdentified || !structured {
		// bare values carry no independent identity, nothing to check
		return nil
	}
	attr := idf.IdentifierAttribute()
	if attr == "" || attr != t.identAttr {
		return fmt.Errorf("%w: %s declares %q, collection uses %q",
			ErrIdentitySchemaConflict, child.Type().Describe(), attr, t.identAttr)
	}
	id, ok := idf.IdentityValue()
	if !ok {
		return fmt.Errorf("%w: %s has no value for %q",
			ErrMissingIdentifier, child.Type().Describe(), attr)
	}
	if id != expectedKey {
		return fmt.Errorf("%w: identifier %q, key %q", ErrIdentityMisplacement, id, expectedKey)
	}
	return nil
}

// precheckIdentity rejects an in-place update whose raw snapshot carries an
// identity other than the key it targets, before any mutation happens.
func (t *MapType) precheckIdentity(expectedKey string, obj map[string]any) error {
	if t.mode != modeIdentified {
		return nil
	}
	id, ok := identString(obj[t.identAttr])
	if !ok {
		return fmt.Errorf("%w: value has no %q", ErrMissingIdentifier, t.identAttr)
	}
	if id != expectedKey {
		return fmt.Errorf("%w: identifier %q, key %q", ErrIdentityMisplacement, id, expectedKey)
	}
	return nil
}
