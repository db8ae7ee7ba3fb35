package util

import "encoding/binary"

// FirstWord reads the first 4 bytes of id as a little-endian uint32. It
// panics if id is shorter than 4 bytes; callers pass fixed-width cache
// identifiers which are always well over that length.
func FirstWord(id []byte) uint32 {
	return binary.LittleEndian.Uint32(id[:4])
}

// RouteShard maps an identifier to a shard index in [0, n) by taking its
// first machine word modulo the shard count — an endian-neutral stand-in
// for the native "cast the leading bytes to an int" routing, which
// depends only on the identifiers having entropy in their leading bytes
// (true for hash-derived ids).
func RouteShard(id []byte, n int) int {
	if n <= 1 {
		return 0
	}
	return int(FirstWord(id) % uint32(n))
}
