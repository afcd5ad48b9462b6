package questlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockMessage(t *testing.T) {
	cases := map[string]struct {
		quest    *Quest
		settings Settings
		expected string
	}{
		"full name": {
			quest:    &Quest{FormID: 0x12, FullName: "Reunions", EditorID: "MQ106"},
			expected: "Quest item locked by: [00000012] Reunions.",
		},
		"editor id": {
			quest:    &Quest{FormID: 0xABCDEF01, EditorID: "MQ106"},
			expected: "Quest item locked by: [ABCDEF01] MQ106.",
		},
		"no name": {
			quest:    &Quest{FormID: 0x12},
			expected: "Quest item locked by: [00000012].",
		},
		"fallback": {
			settings: SettingsMap{DropQuestItemWarning: "You can't drop that."},
			expected: "You can't drop that.",
		},
		"fallback missing": {
			settings: SettingsMap{"sOther": "x"},
			expected: "",
		},
		"no settings": {
			expected: "",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, LockMessage(tc.quest, tc.settings))
		})
	}
}
