//go:build windows

package questlock

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var procFlushInstructionCache = windows.NewLazySystemDLL("kernel32.dll").NewProc("FlushInstructionCache")

// Windows asks for FlushInstructionCache after modifying code even though
// x86 keeps the caches coherent.
func cacheflush(buf []byte) {
	procFlushInstructionCache.Call(
		uintptr(windows.CurrentProcess()),
		uintptr(unsafe.Pointer(unsafe.SliceData(buf))),
		uintptr(len(buf)),
	)
}
