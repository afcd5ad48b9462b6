package questlock

import (
	"debug/pe"
	"errors"
	"io"
)

// ModuleFromPE reads the text segment bounds of a PE image. If base is zero
// the image's preferred base is used.
func ModuleFromPE(r io.ReaderAt, base uintptr) (Module, error) {
	f, err := pe.NewFile(r)
	if err != nil {
		return Module{}, err
	}
	defer f.Close()

	if base == 0 {
		opt, ok := f.OptionalHeader.(*pe.OptionalHeader64)
		if !ok {
			return Module{}, errors.New("not a 64-bit image")
		}
		base = uintptr(opt.ImageBase)
	}

	text := f.Section(".text")
	if text == nil {
		return Module{}, errors.New("image has no .text section")
	}
	if text.VirtualSize == 0 {
		return Module{}, errors.New(".text section is empty")
	}

	return Module{
		Base:      base,
		TextStart: base + uintptr(text.VirtualAddress),
		TextEnd:   base + uintptr(text.VirtualAddress) + uintptr(text.VirtualSize),
	}, nil
}
