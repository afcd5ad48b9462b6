package questlock

import (
	"fmt"

	"github.com/apex/log"
)

// PatchSite is a range of code inside a game function that is replaced with
// a call into a trampoline. Start and End are offsets from the address of
// ID; End is exclusive.
type PatchSite struct {
	Name       string
	ID         RelocationID
	Start      uintptr
	End        uintptr
	Trampoline Trampoline
}

// Size is the number of bytes the site overwrites.
func (s PatchSite) Size() uintptr {
	return s.End - s.Start
}

var (
	// DropSite is inside the routine that drops an item from the player's
	// inventory into the world.
	DropSite = PatchSite{
		Name:       "drop",
		ID:         311743,
		Start:      0x6E,
		End:        0x83,
		Trampoline: DropTrampoline,
	}

	// TransferSite is inside the routine that moves an item into a
	// container.
	TransferSite = PatchSite{
		Name:       "transfer",
		ID:         552046,
		Start:      0x922,
		End:        0x937,
		Trampoline: TransferTrampoline,
	}
)

// Sites lists every patch site.
var Sites = []PatchSite{DropSite, TransferSite}

// Binding pairs a site with the address of the native function its
// trampoline jumps to.
type Binding struct {
	Site     PatchSite
	Callback uintptr
}

// Installer patches sites in the running module. It must be used before the
// game can reach any of the patched code, and each site may only be
// installed once.
type Installer struct {
	Resolver *Resolver
	Arena    *Arena
	Memory   Memory

	// Log receives diagnostics. log.Log is used if it's nil.
	Log log.Interface
}

// NewInstaller returns an Installer that writes to the current process.
func NewInstaller(resolver *Resolver, arena *Arena) *Installer {
	return &Installer{
		Resolver: resolver,
		Arena:    arena,
		Memory:   ProcessMemory{},
	}
}

func (in *Installer) logger() log.Interface {
	if in.Log == nil {
		return log.Log
	}
	return in.Log
}

// Install replaces the site's range with a call into a freshly generated
// trampoline.
//
// Nothing in the game's code is touched until the site is resolved and
// validated, and its trampoline and call are ready. Only a failed write can
// leave the site half written, and then the process must not continue.
func (in *Installer) Install(b Binding) error {
	site := b.Site

	target, err := in.Resolver.Resolve(site.ID)
	if err != nil {
		return fmt.Errorf("resolving site %q: %w", site.Name, err)
	}

	if err := site.Validate(); err != nil {
		return err
	}

	start, end := target+site.Start, target+site.End
	if end < target || !in.Resolver.Module.containsTextRange(start, end) {
		return fmt.Errorf("site %q: [%#x, %#x) is not within [%#x, %#x): %w",
			site.Name, start, end, in.Resolver.Module.TextStart, in.Resolver.Module.TextEnd, ErrOutOfModule)
	}

	code := site.Trampoline.Generate(b.Callback)
	trampoline, err := in.Arena.Allocate(code)
	if err != nil {
		return fmt.Errorf("allocating trampoline for site %q: %w", site.Name, err)
	}

	call, err := in.Arena.PrepareCall(start, trampoline, CallWidth)
	if err != nil {
		return fmt.Errorf("preparing call for site %q: %w", site.Name, err)
	}

	blank := make([]byte, site.Size())
	nopFill(blank)
	if err := in.Memory.Write(start, blank); err != nil {
		return fmt.Errorf("blanking site %q: %w", site.Name, err)
	}

	if err := in.Memory.Write(start, call); err != nil {
		return fmt.Errorf("writing call for site %q: %w", site.Name, err)
	}

	entry := in.logger().WithFields(log.Fields{
		"site":       site.Name,
		"id":         uint64(site.ID),
		"address":    fmt.Sprintf("%#x", start),
		"trampoline": fmt.Sprintf("%#x", trampoline),
	})
	if listing, err := Disassemble(code, trampoline); err == nil {
		entry = entry.WithField("code", listing)
	}
	entry.Debug("installed hook")

	return nil
}

// InstallAll installs every binding, stopping at the first error.
func (in *Installer) InstallAll(bindings []Binding) error {
	for _, b := range bindings {
		if err := in.Install(b); err != nil {
			return err
		}
	}

	in.logger().Debug("installed all hooks")
	return nil
}
