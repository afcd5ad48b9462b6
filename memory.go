package questlock

import (
	"fmt"
	"unsafe"
)

// Memory writes into the executable memory of the running process.
type Memory interface {
	// Write copies data to addr. The memory may be executable and
	// read-only.
	Write(addr uintptr, data []byte) error
}

// ProcessMemory writes to the current process by temporarily making the
// target pages writable.
type ProcessMemory struct{}

func (ProcessMemory) Write(addr uintptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	code := unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(data))

	err := mprotect(code, mprotectRWX)
	if err != nil {
		return fmt.Errorf("unprotecting %#x: %w", addr, err)
	}
	defer mprotect(code, mprotectRX)

	copy(code, data)
	cacheflush(code)

	return nil
}
