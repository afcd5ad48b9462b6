package questlock

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings looks up the game's string settings.
type Settings interface {
	String(key string) (string, bool)
}

// SettingsMap is Settings backed by a map.
type SettingsMap map[string]string

func (m SettingsMap) String(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// LoadSettings reads a YAML mapping of setting names to strings, e.g.
//
//	sDropQuestItemWarning: You cannot drop quest items.
func LoadSettings(path string) (SettingsMap, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	m := SettingsMap{}
	if err := yaml.Unmarshal(buf, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
