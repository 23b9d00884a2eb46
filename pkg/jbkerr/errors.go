// Package jbkerr declares the closed set of error kinds from which every
// package in Jubako builds its wrapped errors, so callers can use
// errors.Is against a stable sentinel regardless of which layer raised it.
package jbkerr

import "errors"

// Format errors: magic/version/kind mismatch, out-of-bounds offsets,
// malformed lengths, non-UTF-8 where UTF-8 is required, invalid
// property-kind bytes, out-of-range variant ids.
var ErrFormat = errors.New("jubako: format error")

// ErrIntegrity covers a BLAKE3 digest mismatch or a truncated check-info
// block.
var ErrIntegrity = errors.New("jubako: integrity error")

// ErrMissingPack marks a pack referenced by the manifest that the locator
// chain could not resolve. Non-fatal: surfaced via MayMissPack rather than
// propagated as a hard error.
var ErrMissingPack = errors.New("jubako: missing pack")

// ErrEncoding covers a value rejected at write time because it does not
// fit the property's declared width (never silently truncated).
var ErrEncoding = errors.New("jubako: encoding error")

// ErrCapacity covers exceeding a structural limit: more than 4096 blobs in
// a cluster, more than 2^20 clusters in a content pack, and similar.
var ErrCapacity = errors.New("jubako: capacity exceeded")

// ErrReservedPropertyKind is returned when a Layout references the
// reserved 0x40 property-kind nibble; no reader ever produces a value for
// it.
var ErrReservedPropertyKind = errors.New("jubako: reserved property kind")
