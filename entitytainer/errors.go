// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package entitytainer

import "fmt"

// Kind identifies the category of an Error returned at the package
// boundary. The underlying C implementation this package is modeled on
// relies on asserts for every one of these; Go library code surfaces
// them as typed errors instead.
type Kind string

const (
	// CapacityExceeded means a migration was requested but the parent's
	// bucket is already in the top tier.
	CapacityExceeded Kind = "capacity_exceeded"
	// TierExhausted means a tier has no free buckets, neither on its
	// freelist nor in its bump-allocation headroom.
	TierExhausted Kind = "tier_exhausted"
	// InvalidEntity means an entity id was out of the usable
	// [1, max_entities) range (0 is reserved to mean "none").
	InvalidEntity Kind = "invalid_entity"
	// InvalidConfig means the tier configuration passed to Create or
	// NeededSize violates a sizing constraint.
	InvalidConfig Kind = "invalid_config"
	// DuplicateAdd means AddEntity was called for an entity that already
	// has a bucket.
	DuplicateAdd Kind = "duplicate_add"
	// NoSuchParent means a read or mutation named a parent that has no
	// bucket allocated.
	NoSuchParent Kind = "no_such_parent"
	// ChildNotPresent means RemoveChild named a child that is not in the
	// parent's bucket.
	ChildNotPresent Kind = "child_not_present"
)

// Error is the error type returned at the entitytainer API boundary.
type Error struct {
	Kind   Kind
	Entity Entity
	Other  Entity
	msg    string
}

func (e *Error) Error() string {
	return e.msg
}

// Is reports whether target is the same Kind as e, so callers can write
// errors.Is(err, entitytainer.TierExhausted).
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// Is makes a bare Kind usable directly as an errors.Is target, e.g.
// errors.Is(err, entitytainer.CapacityExceeded).
func (k Kind) Is(target error) bool {
	e, ok := target.(*Error)
	return ok && e.Kind == k
}

func (k Kind) Error() string {
	return string(k)
}

func newError(kind Kind, e Entity, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Entity: e, msg: fmt.Sprintf(format, args...)}
}

// NewError lets collaborating packages (e.g. config) construct an
// entitytainer.Error of the given Kind without an offending entity id, so
// that errors.Is(err, entitytainer.InvalidConfig) works uniformly whether
// the check ran inside this package or before a Container even exists.
func NewError(kind Kind, format string, args ...interface{}) error {
	return newError(kind, 0, format, args...)
}

func newErrorPair(kind Kind, e, other Entity, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Entity: e, Other: other, msg: fmt.Sprintf(format, args...)}
}
