package questlock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/pboyd/malloc"
)

var (
	// ErrArenaExhausted is returned when the arena's reserved space can't
	// fit an allocation.
	ErrArenaExhausted = errors.New("code arena exhausted")

	// ErrOutOfRange is returned when a call can't reach its destination
	// with the requested encoding.
	ErrOutOfRange = errors.New("branch target out of range")
)

// DefaultArenaSize is enough for both trampolines and their call slots
// many times over.
const DefaultArenaSize = 1 << 12

const (
	// arenaHintStep and arenaHintCount place mapping hints below the
	// module, each step further away.
	arenaHintStep  = 64 << 20
	arenaHintCount = 15

	// maxArenaDistance keeps every byte of the arena within rel32 reach of
	// any site in a module of up to 1GiB.
	maxArenaDistance = 1 << 30
)

// Arena is append-only executable memory shared by every patch site. Code
// placed in it lives until the process exits.
//
// An Arena is safe for concurrent use.
type Arena struct {
	heap   *malloc.Arena
	region []byte

	capacity int
	near     uintptr
	used     int
	spans    [][2]uintptr

	mem      Memory
	mprotect func(int) error
	mu       sync.Mutex
	initOnce sync.Once
	initErr  error
	mutable  bool
}

// NewArena returns an arena that reserves capacity bytes of fresh
// executable memory the first time something is allocated. The memory is
// mapped within branch range of near, normally the module base; a zero near
// maps it anywhere. Calls are written to patch sites with mem.
func NewArena(capacity int, near uintptr, mem Memory) *Arena {
	return &Arena{
		capacity: capacity,
		near:     near,
		mem:      mem,
	}
}

// NewArenaAt returns an arena that hands out space from region, which must
// already be writable and executable. This is for memory a loader reserved
// within branch range of the game.
func NewArenaAt(region []byte, mem Memory) *Arena {
	return &Arena{
		region:   region,
		capacity: len(region),
		mem:      mem,
		mprotect: func(int) error { return nil },
		mutable:  true,
	}
}

func (a *Arena) init() error {
	a.initOnce.Do(func() {
		if a.region != nil {
			return
		}

		be, buf, err := a.mapNear()
		if err != nil {
			a.initErr = err
			return
		}

		if protBE, ok := be.(malloc.ProtectedArenaBackend); ok {
			a.mprotect = protBE.Protect
		} else {
			a.mprotect = func(int) error {
				return nil
			}
		}

		a.heap = malloc.NewArenaAt(buf)
		if a.heap == nil {
			a.initErr = errors.New("unable to initialize arena")
			return
		}
		a.mutable = true
	})
	return a.initErr
}

// mapNear maps the arena's memory, trying hints below a.near until a mapping
// lands within reach of it.
func (a *Arena) mapNear() (malloc.ArenaBackend, []byte, error) {
	hints := []uintptr{0}
	if a.near != 0 {
		hints = hints[:0]
		for i := uintptr(1); i <= arenaHintCount && i*arenaHintStep < a.near; i++ {
			hints = append(hints, a.near-i*arenaHintStep)
		}
	}

	var lastErr error
	for _, hint := range hints {
		be := malloc.MmapBackend(
			malloc.MmapProt(mprotectExec),
			malloc.MmapFlags(arenaMapFlags),
			malloc.MmapAddr(hint),
		)
		buf, err := be.Grow(nil, uintptr(a.capacity))
		if err != nil {
			if a.near == 0 {
				return nil, nil, err
			}
			lastErr = err
			continue
		}

		if a.near == 0 || withinReach(a.near, buf) {
			return be, buf, nil
		}

		if freeBE, ok := be.(malloc.FreeableArenaBackend); ok {
			freeBE.Free(buf)
		}
	}

	if lastErr != nil {
		return nil, nil, fmt.Errorf("%w: no memory mapped near %#x: %w", ErrOutOfRange, a.near, lastErr)
	}
	return nil, nil, fmt.Errorf("%w: no memory mapped near %#x", ErrOutOfRange, a.near)
}

func withinReach(near uintptr, buf []byte) bool {
	start := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	end := start + uintptr(len(buf))
	return distance(near, start) <= maxArenaDistance && distance(near, end) <= maxArenaDistance
}

func distance(a, b uintptr) uintptr {
	if a > b {
		return a - b
	}
	return b - a
}

func (a *Arena) beginMutate() error {
	if a.mprotect == nil || a.mutable {
		return nil
	}

	err := a.mprotect(mprotectRWX)
	if err == nil {
		a.mutable = true
	}
	return err
}

func (a *Arena) endMutate() error {
	if !a.mutable || a.region != nil {
		return nil
	}

	err := a.mprotect(mprotectRX)
	if err == nil {
		a.mutable = false
	}
	return err
}

// reserve returns size bytes aligned to align. a.mu must be held and the
// arena must be mutable.
func (a *Arena) reserve(size, align int) ([]byte, error) {
	if !a.mutable {
		panic("reserve called in immutable state")
	}

	if a.region != nil {
		base := uintptr(unsafe.Pointer(unsafe.SliceData(a.region)))
		start := int((base+uintptr(a.used)+uintptr(align-1))&^uintptr(align-1) - base)
		if start+size > len(a.region) {
			return nil, fmt.Errorf("%w: %d of %d bytes used, need %d", ErrArenaExhausted, a.used, a.capacity, size)
		}
		a.used = start + size
		return a.region[start : start+size : start+size], nil
	}

	size = (size + align - 1) &^ (align - 1)
	if a.used+size > a.capacity {
		return nil, fmt.Errorf("%w: %d of %d bytes used, need %d", ErrArenaExhausted, a.used, a.capacity, size)
	}

	buf, err := malloc.MallocSlice[byte](a.heap, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArenaExhausted, err)
	}
	a.used += size
	return buf, nil
}

// place copies data into the arena and returns its address. a.mu must be
// held.
func (a *Arena) place(data []byte, align int) (uintptr, error) {
	if err := a.init(); err != nil {
		return 0, fmt.Errorf("error initializing arena: %w", err)
	}

	if err := a.beginMutate(); err != nil {
		return 0, err
	}
	defer a.endMutate()

	buf, err := a.reserve(len(data), align)
	if err != nil {
		return 0, err
	}
	copy(buf, data)
	cacheflush(buf)

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	a.spans = append(a.spans, [2]uintptr{addr, addr + uintptr(len(buf))})
	return addr, nil
}

// Allocate copies finished code into the arena and returns the address it
// will execute from.
func (a *Arena) Allocate(code []byte) (uintptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.place(padCode(code), 16)
}

// PrepareCall returns the bytes of a call to target as it would execute from
// site, without writing them. width picks the encoding:
//
//   - 5: CALL rel32, target must be within 2GiB of site
//   - 6: CALL qword [RIP+disp32] through an 8-byte slot in the arena, which
//     must be within 2GiB of site
//
// The slot for a 6 byte call is allocated here, so every arena failure is
// reported before site is touched.
func (a *Arena) PrepareCall(site, target uintptr, width int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch width {
	case NearCallWidth:
		return encodeNearCall(site, target)
	case CallWidth:
		slot := binary.LittleEndian.AppendUint64(nil, uint64(target))
		slotAddr, err := a.place(slot, 8)
		if err != nil {
			return nil, err
		}
		return encodeIndirectCall(site, slotAddr)
	default:
		return nil, fmt.Errorf("unsupported call width %d", width)
	}
}

// WriteCall writes a call to target at site. See PrepareCall for the
// supported widths.
func (a *Arena) WriteCall(site, target uintptr, width int) error {
	call, err := a.PrepareCall(site, target, width)
	if err != nil {
		return err
	}
	return a.mem.Write(site, call)
}

// Contains reports whether addr is inside something allocated from the
// arena.
func (a *Arena) Contains(addr uintptr) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.spans {
		if addr >= s[0] && addr < s[1] {
			return true
		}
	}
	return false
}

// Used returns the number of bytes handed out so far.
func (a *Arena) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}
