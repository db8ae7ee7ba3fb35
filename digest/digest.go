// Package digest declares the checksum collaborator used by the cache
// engine's compare-and-swap path.
package digest

// Digest computes a checksum over a payload for compare-and-swap
// comparisons. Implementations need not be cryptographically secure;
// collision resistance and determinism are what the CAS contract needs.
type Digest interface {
	Sum(payload []byte) []byte
}
