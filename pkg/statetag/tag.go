// Package statetag provides cache-validity tokens.
//
// A Tag is minted by New and is strictly distinct from every previously minted
// tag. Components that perform expensive recomputation remember the tag their
// cached result was computed with and skip the work when handed an equal tag.
package statetag

import "sync/atomic"

// undefined is the sentinel counter value carried by the zero Tag.
const undefined uint64 = 0

var counter atomic.Uint64

// Tag is an opaque, creation-ordered token. The zero value is undefined.
type Tag struct {
	v uint64
}

// New returns a newly minted, always-defined tag.
func New() Tag {
	return Tag{v: counter.Add(1)}
}

// Reset returns t to the undefined state and returns t for chaining.
func (t *Tag) Reset() *Tag {
	t.v = undefined
	return t
}

// Undefined reports whether t carries the sentinel value.
func (t Tag) Undefined() bool {
	return t.v == undefined
}

// Equal reports whether t and o are both defined and carry the same value.
// An undefined tag never equals anything, including another undefined tag.
func (t Tag) Equal(o Tag) bool {
	if t.v == undefined || o.v == undefined {
		return false
	}
	return t.v == o.v
}

// Before reports whether t was minted before o. Undefined tags are never ordered.
func (t Tag) Before(o Tag) bool {
	if t.v == undefined || o.v == undefined {
		return false
	}
	return t.v < o.v
}

// Undefined reports whether t is undefined.
func Undefined(t Tag) bool {
	return t.Undefined()
}
