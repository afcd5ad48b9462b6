//go:build windows

package questlock

import (
	"bytes"
	"unsafe"

	"golang.org/x/sys/windows"
)

// peHeaderSize covers the headers of any image the linker produces.
const peHeaderSize = 0x1000

// CurrentModule describes the executable of the running process.
func CurrentModule() (Module, error) {
	var handle windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &handle); err != nil {
		return Module{}, err
	}

	base := uintptr(handle)
	headers := unsafe.Slice((*byte)(unsafe.Pointer(base)), peHeaderSize)
	return ModuleFromPE(bytes.NewReader(headers), base)
}
