// Package types implements the Box type model: primitive type names,
// pointer types, storage sizes and load/store widths. The arithmetic and
// assignment rules of spec §3 are enforced in package sema.
package types

import "strings"

// SizeOf returns the storage size, in bytes, of a Box type name.
// Pointer types (any name ending in '*') are always 3 bytes.
func SizeOf(name string) int {
	switch {
	case strings.HasSuffix(name, "*"):
		return 3
	case name == "num24" || name == "f24":
		return 3
	case name == "num16" || name == "f16":
		return 2
	case name == "char":
		return 1
	default:
		return 0
	}
}

// IsPointer reports whether name is a pointer type (ends in '*').
func IsPointer(name string) bool {
	return strings.HasSuffix(name, "*")
}

// IsInteger reports whether name is one of the integer-storage
// primitive types (num16/num24/f16/f24 — f16/f24 are treated as their
// integer counterparts for storage and arithmetic, per spec §3).
func IsInteger(name string) bool {
	switch name {
	case "num16", "num24", "f16", "f24":
		return true
	default:
		return false
	}
}

// Pointee returns the pointee type of a one-level pointer type, e.g.
// "num24*" -> "num24". A name that is not a pointer type is returned
// unchanged.
func Pointee(name string) string {
	return strings.TrimSuffix(name, "*")
}

// PointerTo returns the pointer type for a given base type.
func PointerTo(name string) string {
	return name + "*"
}

// IsVoid reports whether name is exactly "void" (not "void*").
func IsVoid(name string) bool {
	return name == "void"
}

// LoadStoreWidth classifies a type's load/store instruction selection
// per spec §4.7: "lw/sw" for 2-byte, "lh/sh" for 3-byte (including
// pointers and num24/f24), "lb/sb" for char.
type LoadStoreWidth int

const (
	WidthWord  LoadStoreWidth = iota // 2 bytes: lw/sw
	WidthHalf                        // 3 bytes: lh/sh
	WidthByte                        // 1 byte: lb/sb
)

// WidthOf returns the load/store width class for a Box type name.
func WidthOf(name string) LoadStoreWidth {
	switch {
	case name == "num16" || name == "f16":
		return WidthWord
	case IsPointer(name) || name == "num24" || name == "f24":
		return WidthHalf
	case name == "char":
		return WidthByte
	default:
		return WidthHalf
	}
}
