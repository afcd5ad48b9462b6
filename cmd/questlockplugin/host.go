//go:build windows && cgo

package main

/*
#include <stdlib.h>
#include <string.h>

#include "host.h"

static const void* host_request_inventory_item(const questlock_host* h, uint32_t handle_id) {
	return h->request_inventory_item ? h->request_inventory_item(handle_id) : NULL;
}

static const void* host_stack_extra(const questlock_host* h, const void* item, uint32_t stack_id) {
	return h->stack_extra ? h->stack_extra(item, stack_id) : NULL;
}

static const void* host_original_extra(const questlock_host* h, const void* extra) {
	return h->original_extra ? h->original_extra(extra) : NULL;
}

static void host_lock_aliases(const questlock_host* h, const void* extra) {
	if (h->lock_aliases) h->lock_aliases(extra);
}

static void host_unlock_aliases(const questlock_host* h, const void* extra) {
	if (h->unlock_aliases) h->unlock_aliases(extra);
}

static uint32_t host_alias_count(const questlock_host* h, const void* extra) {
	return h->alias_count ? h->alias_count(extra) : 0;
}

static bool host_alias_at(const questlock_host* h, const void* extra, uint32_t index, bool* quest_object, questlock_quest* quest) {
	return h->alias_at ? h->alias_at(extra, index, quest_object, quest) : false;
}

static bool host_first_stack_id(const questlock_host* h, const void* stacks, uint16_t* stack_id) {
	return h->first_stack_id ? h->first_stack_id(stacks, stack_id) : false;
}

static const char* host_setting_string(const questlock_host* h, const char* key) {
	return h->setting_string ? h->setting_string(key) : NULL;
}

static void host_show_hud_message(const questlock_host* h, const char* text, const char* sound, bool throttle, bool warning) {
	if (h->show_hud_message) h->show_hud_message(text, sound, throttle, warning);
}
*/
import "C"

import (
	"iter"
	"unsafe"

	"github.com/pboyd/questlock"
)

// host adapts the loader's function table to the questlock interfaces. The
// table must outlive the process.
type host struct {
	fns *C.questlock_host

	// fallback is consulted for settings the game doesn't have.
	fallback questlock.Settings
}

func (h *host) InventoryItem(handleID uint32) (questlock.Item, bool) {
	ptr := C.host_request_inventory_item(h.fns, C.uint32_t(handleID))
	if ptr == nil {
		return nil, false
	}
	return &nativeItem{host: h, ptr: ptr}, true
}

// itemAt wraps a BGSInventoryItem pointer passed to a hook.
func (h *host) itemAt(ptr unsafe.Pointer) questlock.Item {
	if ptr == nil {
		return nil
	}
	return &nativeItem{host: h, ptr: ptr}
}

func (h *host) firstStackID(stacks unsafe.Pointer) ([]uint16, bool) {
	if stacks == nil {
		return nil, false
	}
	var id C.uint16_t
	if !C.host_first_stack_id(h.fns, stacks, &id) {
		return nil, false
	}
	return []uint16{uint16(id)}, true
}

func (h *host) String(key string) (string, bool) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))

	if v := C.host_setting_string(h.fns, ckey); v != nil {
		return questlock.DecodeGameString(C.GoBytes(unsafe.Pointer(v), C.int(C.strlen(v)))), true
	}
	if h.fallback != nil {
		return h.fallback.String(key)
	}
	return "", false
}

func (h *host) ShowMessage(text string, opts questlock.HUDOptions) {
	ctext := cGameString(text)
	defer C.free(unsafe.Pointer(ctext))

	var csound *C.char
	if opts.Sound != "" {
		csound = C.CString(opts.Sound)
		defer C.free(unsafe.Pointer(csound))
	}

	C.host_show_hud_message(h.fns, ctext, csound, C.bool(opts.Throttle), C.bool(opts.Warning))
}

type nativeItem struct {
	host *host
	ptr  unsafe.Pointer
}

func (i *nativeItem) StackExtra(stackID uint32) (questlock.ExtraList, bool) {
	extra := C.host_stack_extra(i.host.fns, i.ptr, C.uint32_t(stackID))
	if extra == nil {
		return nil, false
	}
	return &nativeExtra{host: i.host, ptr: extra}, true
}

type nativeExtra struct {
	host *host
	ptr  unsafe.Pointer
}

func (e *nativeExtra) OriginalList() (questlock.ExtraList, bool) {
	original := C.host_original_extra(e.host.fns, e.ptr)
	if original == nil {
		return nil, false
	}
	return &nativeExtra{host: e.host, ptr: original}, true
}

func (e *nativeExtra) Aliases() iter.Seq[questlock.Alias] {
	return func(yield func(questlock.Alias) bool) {
		fns := e.host.fns
		C.host_lock_aliases(fns, e.ptr)
		defer C.host_unlock_aliases(fns, e.ptr)

		n := uint32(C.host_alias_count(fns, e.ptr))
		for i := uint32(0); i < n; i++ {
			var (
				questObject C.bool
				q           C.questlock_quest
			)
			alias := questlock.Alias{}
			if C.host_alias_at(fns, e.ptr, C.uint32_t(i), &questObject, &q) {
				alias.Quest = &questlock.Quest{
					FormID:   uint32(q.form_id),
					FullName: goGameString(q.full_name),
					EditorID: goGameString(q.editor_id),
				}
			}
			alias.QuestObject = bool(questObject)

			if !yield(alias) {
				return
			}
		}
	}
}

func goGameString(s *C.char) string {
	if s == nil {
		return ""
	}
	return questlock.DecodeGameString(C.GoBytes(unsafe.Pointer(s), C.int(C.strlen(s))))
}

func cGameString(s string) *C.char {
	b := questlock.EncodeGameString(s)
	return (*C.char)(C.CBytes(append(b, 0)))
}
