// Show why quest items can't be dropped or stored.
//
// The game silently refuses to drop or transfer an item some quest is using.
// This package patches the two routines that refuse, replacing a few
// instructions in each with a call into a small generated trampoline. The
// trampoline hands the item and stack being moved to a callback, which shows
// a HUD message naming the quest that owns the item.
//
// Patching happens once, at load, before the game runs any of the patched
// code:
//
//   - A Resolver turns each site's relocation id into an address using the
//     address library for the running build.
//   - Each site's range is validated, its trampoline generated and copied
//     into a shared Arena.
//   - The range is filled with NOPs and a CALL into the trampoline is written
//     at its start.
//
// Limitations:
//   - Trampolines are only correct for runtime 1.10.163, other builds will
//     need the stack offsets worked out again
//   - Patches can't be removed
//   - Installing the same site twice is not supported
package questlock
