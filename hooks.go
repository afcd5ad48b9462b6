package questlock

import "iter"

// Quest is the part of a quest record the lock message needs.
type Quest struct {
	FormID   uint32
	FullName string
	EditorID string
}

// DisplayName returns the quest's name, falling back to its editor id.
func (q Quest) DisplayName() string {
	if q.FullName != "" {
		return q.FullName
	}
	return q.EditorID
}

// Alias is one entry of a reference's alias instance array.
type Alias struct {
	// QuestObject is set when the alias flags its reference as a quest
	// item.
	QuestObject bool
	Quest       *Quest
}

// ExtraList is the extra data attached to an inventory stack or reference.
type ExtraList interface {
	// OriginalList returns the extra data of the original reference when
	// this list carries a reference handle to one.
	OriginalList() (ExtraList, bool)

	// Aliases iterates the alias instances. Implementations hold the alias
	// array's read lock while iterating.
	Aliases() iter.Seq[Alias]
}

// Item is an inventory item made up of one or more stacks.
type Item interface {
	StackExtra(stackID uint32) (ExtraList, bool)
}

// Inventory finds inventory items by handle.
type Inventory interface {
	InventoryItem(handleID uint32) (Item, bool)
}

// HUDOptions controls how a HUD message is shown.
type HUDOptions struct {
	Sound    string
	Throttle bool
	Warning  bool
}

// HUD shows messages on screen. Nothing is returned; a message that can't be
// shown is dropped.
type HUD interface {
	ShowMessage(text string, opts HUDOptions)
}

// lockedItemHUD is how the game itself shows the quest item warning.
var lockedItemHUD = HUDOptions{Throttle: true, Warning: true}

// OwningQuest returns the quest that flags the given stack of item as a quest
// object. When the stack refers back to an original reference, that
// reference's aliases are checked instead.
func OwningQuest(item Item, stackID uint32) (Quest, bool) {
	if item == nil {
		return Quest{}, false
	}

	list, ok := item.StackExtra(stackID)
	if !ok || list == nil {
		return Quest{}, false
	}
	if original, ok := list.OriginalList(); ok && original != nil {
		list = original
	}

	for alias := range list.Aliases() {
		if alias.QuestObject {
			if alias.Quest == nil {
				return Quest{}, false
			}
			return *alias.Quest, true
		}
	}

	return Quest{}, false
}

// Handler is what the trampolines ultimately call. It's stateless and may be
// used from any thread.
type Handler struct {
	Inventory Inventory
	Settings  Settings
	HUD       HUD
}

// DropItem handles an attempt to drop the given stack of the item with
// handleID.
func (h *Handler) DropItem(handleID, stackID uint32) {
	var item Item
	if h.Inventory != nil {
		if found, ok := h.Inventory.InventoryItem(handleID); ok {
			item = found
		}
	}
	h.showMessage(item, stackID)
}

// TransferItem handles an attempt to move item into a container. Only the
// first stack is considered.
func (h *Handler) TransferItem(item Item, stackIDs []uint16) {
	if len(stackIDs) == 0 {
		h.showMessage(nil, 0)
		return
	}
	h.showMessage(item, uint32(stackIDs[0]))
}

func (h *Handler) showMessage(item Item, stackID uint32) {
	var msg string
	if quest, ok := OwningQuest(item, stackID); ok {
		msg = LockMessage(&quest, h.Settings)
	} else {
		msg = LockMessage(nil, h.Settings)
	}

	if h.HUD != nil {
		h.HUD.ShowMessage(msg, lockedItemHUD)
	}
}
