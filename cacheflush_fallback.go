//go:build !windows

package questlock

// Only x86-64 code is ever written and x86 keeps the instruction cache
// coherent.
func cacheflush(buf []byte) {}
