// Package jbkcontainer implements the ContainerPack envelope, the pack
// locator chain, and the top-level Container reader that ties manifest,
// directory and content packs together.
package jbkcontainer

import "github.com/jbkfmt/jubako/pkg/manifest"

// MayMissPack represents the result of resolving a pack reference that is
// allowed to be absent: a sibling pack file the locator chain could not
// find is not a hard error, since the caller may simply not need that
// pack's contents right now.
type MayMissPack[T any] struct {
	found  bool
	value  T
	packInfo *manifest.PackInfo
}

// Found wraps a successfully resolved value.
func Found[T any](value T) MayMissPack[T] {
	return MayMissPack[T]{found: true, value: value}
}

// Missing wraps the PackInfo of a pack the locator chain could not find.
func Missing[T any](pi *manifest.PackInfo) MayMissPack[T] {
	return MayMissPack[T]{found: false, packInfo: pi}
}

// IsFound reports whether the pack was resolved.
func (m MayMissPack[T]) IsFound() bool {
	return m.found
}

// PackInfo returns the manifest record of a missing pack, or nil if found.
func (m MayMissPack[T]) PackInfo() *manifest.PackInfo {
	return m.packInfo
}

// Unwrap returns the resolved value, panicking if the pack was missing.
// Reserved for call sites that have already checked IsFound.
func (m MayMissPack[T]) Unwrap() T {
	if !m.found {
		panic("jbkcontainer: Unwrap called on a missing pack")
	}
	return m.value
}

// Get returns the resolved value and true, or the zero value and false.
func (m MayMissPack[T]) Get() (T, bool) {
	return m.value, m.found
}

// MapMayMissPack transforms a found value, leaving a missing one
// untouched. Defined as a function rather than a method since Go methods
// cannot introduce new type parameters.
func MapMayMissPack[T, U any](m MayMissPack[T], f func(T) U) MayMissPack[U] {
	if !m.found {
		return Missing[U](m.packInfo)
	}
	return Found(f(m.value))
}

// TransposeMayMissPack turns a found-but-erroring value inside-out: an
// error during resolution of a found pack propagates, while a missing
// pack still resolves successfully to a MayMissPack the caller can check.
func TransposeMayMissPack[T any](m MayMissPack[Outcome[T]]) (MayMissPack[T], error) {
	if !m.found {
		return Missing[T](m.packInfo), nil
	}
	if m.value.Err != nil {
		return MayMissPack[T]{}, m.value.Err
	}
	return Found(m.value.Val), nil
}

// Outcome wraps a (value, error) pair for use with TransposeMayMissPack.
type Outcome[T any] struct {
	Val T
	Err error
}

// NewOutcome builds an Outcome from a (value, error) pair.
func NewOutcome[T any](val T, err error) Outcome[T] {
	return Outcome[T]{Val: val, Err: err}
}
