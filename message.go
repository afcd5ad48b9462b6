package questlock

import "fmt"

// DropQuestItemWarning is the game setting holding the game's own quest
// item warning.
const DropQuestItemWarning = "sDropQuestItemWarning"

// LockMessage returns the HUD text for an item locked by quest. A nil quest
// gets the game's generic warning from settings, or nothing if it isn't set.
func LockMessage(quest *Quest, settings Settings) string {
	if quest == nil {
		if settings == nil {
			return ""
		}
		msg, _ := settings.String(DropQuestItemWarning)
		return msg
	}

	msg := fmt.Sprintf("Quest item locked by: [%08X]", quest.FormID)
	if name := quest.DisplayName(); name != "" {
		msg += " " + name
	}
	return msg + "."
}
