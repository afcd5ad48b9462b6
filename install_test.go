package questlock

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCallback = 0x7ff612345670

func TestInstall(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	p := newFakeProcess(t)
	require.NoError(p.installer().Install(Binding{Site: DropSite, Callback: testCallback}))

	site := p.module.Base + fakeDropFunc + DropSite.Start

	call := p.at(site, CallWidth)
	assert.Equal([]byte{0xff, 0x15}, call[:2])

	disp := int32(binary.LittleEndian.Uint32(call[2:]))
	slot := uintptr(int64(site) + CallWidth + int64(disp))
	require.True(p.arena.Contains(slot))

	trampoline := uintptr(binary.LittleEndian.Uint64(p.at(slot, 8)))
	require.True(p.arena.Contains(trampoline))

	code := DropTrampoline.Generate(testCallback)
	assert.Equal(code, p.at(trampoline, len(code)))

	for i, b := range p.at(site+CallWidth, int(DropSite.Size())-CallWidth) {
		assert.Equal(byte(opcodeNOP), b, "byte %d after call", i)
	}

	// Neighbors are untouched.
	assert.Equal(byte(opcodeINT3), p.at(site-1, 1)[0])
	assert.Equal(byte(opcodeINT3), p.at(p.module.Base+fakeDropFunc+DropSite.End, 1)[0])
}

func TestInstall_BlanksExactRange(t *testing.T) {
	for _, site := range Sites {
		t.Run(site.Name, func(t *testing.T) {
			assert := assert.New(t)

			p := newFakeProcess(t)
			if !assert.NoError(p.installer().Install(Binding{Site: site, Callback: testCallback})) {
				return
			}

			target, err := p.resolver.Resolve(site.ID)
			assert.NoError(err)

			// The blanking write comes first, followed by the call.
			if assert.Len(p.mem.writes, 2) {
				blank := p.mem.writes[0]
				assert.Equal(target+site.Start, blank.addr)
				assert.Len(blank.data, int(site.End-site.Start))
				for _, b := range blank.data {
					assert.Equal(byte(opcodeNOP), b)
				}

				call := p.mem.writes[1]
				assert.Equal(target+site.Start, call.addr)
				assert.Len(call.data, CallWidth)
			}
		})
	}
}

func TestInstall_TooSmall(t *testing.T) {
	cases := map[string]PatchSite{
		"one byte short": {
			Name: "short", ID: DropSite.ID, Start: 0x10, End: 0x10 + CallWidth - 1, Trampoline: DropTrampoline,
		},
		"empty": {
			Name: "empty", ID: DropSite.ID, Start: 0x10, End: 0x10, Trampoline: DropTrampoline,
		},
		"reversed": {
			Name: "reversed", ID: DropSite.ID, Start: 0x20, End: 0x10, Trampoline: DropTrampoline,
		},
	}

	for name, site := range cases {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			p := newFakeProcess(t)
			err := p.installer().Install(Binding{Site: site, Callback: testCallback})
			assert.Error(err)
			assert.True(errors.Is(err, ErrPatchTooSmall) || errors.Is(err, ErrInvalidRange))

			assert.Empty(p.mem.writes)
			assert.Zero(p.arena.Used())
		})
	}
}

func TestInstall_UnknownID(t *testing.T) {
	assert := assert.New(t)

	p := newFakeProcess(t)
	site := DropSite
	site.ID = 1

	err := p.installer().Install(Binding{Site: site, Callback: testCallback})
	assert.ErrorIs(err, ErrUnknownID)
	assert.Empty(p.mem.writes)
	assert.Zero(p.arena.Used())
}

func TestInstall_ArenaExhausted(t *testing.T) {
	assert := assert.New(t)

	p := newFakeProcess(t)
	p.arena = NewArenaAt(make([]byte, 8), p.mem)

	err := p.installer().Install(Binding{Site: TransferSite, Callback: testCallback})
	assert.ErrorIs(err, ErrArenaExhausted)
	assert.Empty(p.mem.writes)
}

func TestInstall_NoRoomForCallSlot(t *testing.T) {
	assert := assert.New(t)

	p := newFakeProcess(t)
	// One padded trampoline fits, its call slot doesn't.
	p.arena = NewArenaAt(p.image[fakeTextSize:fakeTextSize+32], p.mem)

	err := p.installer().Install(Binding{Site: DropSite, Callback: testCallback})
	assert.ErrorIs(err, ErrArenaExhausted)
	assert.Empty(p.mem.writes)

	site := p.module.Base + fakeDropFunc + DropSite.Start
	for i, b := range p.at(site, int(DropSite.Size())) {
		assert.Equal(byte(opcodeINT3), b, "byte %d of site", i)
	}
}

func TestInstall_RangeOutsideText(t *testing.T) {
	assert := assert.New(t)

	p := newFakeProcess(t)
	// The function starts in text but the patched range runs past its end.
	p.resolver.Table = OffsetMap{DropSite.ID: fakeTextSize - DropSite.Start - 4}

	err := p.installer().Install(Binding{Site: DropSite, Callback: testCallback})
	assert.ErrorIs(err, ErrOutOfModule)
	assert.Empty(p.mem.writes)
	assert.Zero(p.arena.Used())
}

func TestInstall_WriteFailure(t *testing.T) {
	p := newFakeProcess(t)
	p.mem.err = errors.New("access denied")

	err := p.installer().Install(Binding{Site: DropSite, Callback: testCallback})
	assert.ErrorIs(t, err, p.mem.err)
}

func TestInstall_Twice(t *testing.T) {
	t.Skip("installing a site more than once is not supported; the second call would treat the first trampoline call as game code")
}

func TestInstallAll(t *testing.T) {
	assert := assert.New(t)

	p := newFakeProcess(t)
	err := p.installer().InstallAll([]Binding{
		{Site: DropSite, Callback: testCallback},
		{Site: TransferSite, Callback: testCallback + 0x100},
	})
	assert.NoError(err)
	assert.Len(p.mem.writes, 4)

	messages := []string{}
	for _, e := range p.log.Entries {
		messages = append(messages, e.Message)
	}
	assert.Equal([]string{"installed hook", "installed hook", "installed all hooks"}, messages)

	if assert.Len(p.log.Entries, 3) {
		assert.Equal("transfer", p.log.Entries[1].Fields.Get("site"))
		assert.Contains(p.log.Entries[1].Fields.Get("code"), "JMP")
	}
}

func TestInstallAll_StopsAtFirstError(t *testing.T) {
	assert := assert.New(t)

	p := newFakeProcess(t)
	bad := TransferSite
	bad.ID = 42

	err := p.installer().InstallAll([]Binding{
		{Site: bad, Callback: testCallback},
		{Site: DropSite, Callback: testCallback},
	})
	assert.ErrorIs(err, ErrUnknownID)
	assert.Empty(p.mem.writes)

	for _, e := range p.log.Entries {
		assert.NotEqual("installed all hooks", e.Message)
	}
}

func TestSites(t *testing.T) {
	for _, site := range Sites {
		t.Run(site.Name, func(t *testing.T) {
			assert.NoError(t, site.Validate())
		})
	}
}

func TestPatchSite_Validate(t *testing.T) {
	assert := assert.New(t)

	err := PatchSite{Name: "broken", Start: 4, End: 2}.Validate()
	assert.ErrorIs(err, ErrInvalidRange)
	assert.Contains(err.Error(), "no trampoline")
	assert.Contains(err.Error(), `site "broken"`)
}
