package questlock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "questlock.yaml"))
		assert.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		assert := assert.New(t)

		path := writeFile(t, "questlock.yaml", "addressLibrary: lib/version-1-10-163-0.bin\nlogLevel: debug\n")
		cfg, err := LoadConfig(path)
		if assert.NoError(err) {
			assert.Equal("lib/version-1-10-163-0.bin", cfg.AddressLibrary)
			assert.Equal(DefaultArenaSize, cfg.ArenaSize)

			level, err := cfg.Level()
			assert.NoError(err)
			assert.Equal(log.DebugLevel, level)
		}
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := LoadConfig(writeFile(t, "questlock.yaml", "logLevel: chatty\n"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadConfig(writeFile(t, "questlock.yaml", "arenaSize: [1\n"))
		assert.Error(t, err)
	})

	t.Run("non-positive arena", func(t *testing.T) {
		cfg, err := LoadConfig(writeFile(t, "questlock.yaml", "arenaSize: -1\n"))
		assert.NoError(t, err)
		assert.Equal(t, DefaultArenaSize, cfg.ArenaSize)
	})
}

func TestLoadSettings(t *testing.T) {
	assert := assert.New(t)

	path := writeFile(t, "settings.yaml", "sDropQuestItemWarning: You cannot drop quest items.\nsOther: x\n")
	settings, err := LoadSettings(path)
	if assert.NoError(err) {
		v, ok := settings.String(DropQuestItemWarning)
		assert.True(ok)
		assert.Equal("You cannot drop quest items.", v)

		_, ok = settings.String("sMissing")
		assert.False(ok)
	}

	_, err = LoadSettings(writeFile(t, "settings.yaml", "- not\n- a map\n"))
	assert.Error(err)
}
