package questlock

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// Version is a game runtime version.
type Version [4]uint16

// RuntimeVersion is the build the trampolines were written against.
var RuntimeVersion = Version{1, 10, 163, 0}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// LibraryFileName returns the address library file name for v, e.g.
// version-1-10-163-0.bin.
func LibraryFileName(v Version) string {
	return fmt.Sprintf("version-%d-%d-%d-%d.bin", v[0], v[1], v[2], v[3])
}

type addressEntry struct {
	id     RelocationID
	offset uintptr
}

// AddressLibrary is the id to offset database for a single game build.
//
// The file format is a little-endian uint64 count followed by count pairs of
// uint64 id and uint64 offset, sorted by id.
type AddressLibrary struct {
	entries []addressEntry
}

// maxAddressEntries guards against allocating from a corrupt count.
const maxAddressEntries = 1 << 24

// ReadAddressLibrary parses an address library.
func ReadAddressLibrary(r io.Reader) (*AddressLibrary, error) {
	br := bufio.NewReader(r)

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("reading entry count: %w", err)
	}
	if count > maxAddressEntries {
		return nil, fmt.Errorf("entry count %d is too large", count)
	}

	lib := &AddressLibrary{
		entries: make([]addressEntry, 0, count),
	}

	var pair [2]uint64
	for i := uint64(0); i < count; i++ {
		err := binary.Read(br, binary.LittleEndian, &pair)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("reading entry %d: %w", i, err)
		}

		entry := addressEntry{id: RelocationID(pair[0]), offset: uintptr(pair[1])}
		if n := len(lib.entries); n > 0 && lib.entries[n-1].id >= entry.id {
			return nil, fmt.Errorf("entry %d: id %d is out of order", i, pair[0])
		}
		lib.entries = append(lib.entries, entry)
	}

	return lib, nil
}

// LoadAddressLibrary reads the address library at path. If path is a
// directory the file for RuntimeVersion is loaded from it.
func LoadAddressLibrary(path string) (*AddressLibrary, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, LibraryFileName(RuntimeVersion))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lib, err := ReadAddressLibrary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// Len returns the number of ids in the library.
func (l *AddressLibrary) Len() int {
	return len(l.entries)
}

// Offset looks up id.
func (l *AddressLibrary) Offset(id RelocationID) (uintptr, bool) {
	i, found := slices.BinarySearchFunc(l.entries, id, func(e addressEntry, id RelocationID) int {
		return cmp.Compare(e.id, id)
	})
	if !found {
		return 0, false
	}
	return l.entries[i].offset, true
}

// WriteAddressLibrary writes table in the format ReadAddressLibrary expects.
func WriteAddressLibrary(w io.Writer, table OffsetMap) error {
	ids := make([]RelocationID, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		pair := [2]uint64{uint64(id), uint64(table[id])}
		if err := binary.Write(bw, binary.LittleEndian, pair); err != nil {
			return err
		}
	}
	return bw.Flush()
}
