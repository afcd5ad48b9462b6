package questlock

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
)

type memoryWrite struct {
	addr uintptr
	data []byte
}

// heapMemory writes straight into ordinary Go memory and records every
// write.
type heapMemory struct {
	mu     sync.Mutex
	writes []memoryWrite
	err    error
}

func (m *heapMemory) Write(addr uintptr, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(data)), data)
	m.writes = append(m.writes, memoryWrite{addr: addr, data: append([]byte(nil), data...)})
	return nil
}

const (
	fakeTextSize  = 0x8000
	fakeImageSize = 0x10000

	fakeDropFunc     = 0x1000
	fakeTransferFunc = 0x2000
)

// fakeProcess is a pretend game image. The first half is text filled with
// INT3, the second half is handed to the arena.
type fakeProcess struct {
	image    []byte
	module   Module
	mem      *heapMemory
	arena    *Arena
	resolver *Resolver
	log      *memory.Handler
}

func newFakeProcess(t *testing.T) *fakeProcess {
	t.Helper()

	image := make([]byte, fakeImageSize)
	for i := range image {
		image[i] = opcodeINT3
	}

	base := uintptr(unsafe.Pointer(unsafe.SliceData(image)))
	module := Module{
		Base:      base,
		TextStart: base,
		TextEnd:   base + fakeTextSize,
	}

	mem := &heapMemory{}
	table := OffsetMap{
		DropSite.ID:     fakeDropFunc,
		TransferSite.ID: fakeTransferFunc,
	}

	return &fakeProcess{
		image:    image,
		module:   module,
		mem:      mem,
		arena:    NewArenaAt(image[fakeTextSize:], mem),
		resolver: NewResolver(module, table),
		log:      memory.New(),
	}
}

func (p *fakeProcess) installer() *Installer {
	return &Installer{
		Resolver: p.resolver,
		Arena:    p.arena,
		Memory:   p.mem,
		Log: &log.Logger{
			Handler: p.log,
			Level:   log.DebugLevel,
		},
	}
}

// at returns n bytes of the image at addr.
func (p *fakeProcess) at(addr uintptr, n int) []byte {
	off := addr - p.module.Base
	return p.image[off : off+uintptr(n)]
}
