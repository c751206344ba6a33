package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.toml")
	s, err := Open(path)
	require.NoError(t, err)
	return s
}

func TestOpenCreatesDefaults(t *testing.T) {
	s := openTemp(t)

	got := s.Get()
	assert.Equal(t, "space", got.Shortcuts.RecordKey)
	assert.Equal(t, "ctrl", got.Shortcuts.RecordModifier)
	assert.Equal(t, 400.0, got.Window.Width)

	_, err := os.Stat(s.Path())
	assert.NoError(t, err, "settings file should be created on first open")
}

func TestUpdatePersists(t *testing.T) {
	s := openTemp(t)

	err := s.Update(func(st *Settings) {
		st.Audio.DefaultDevice = "dev-42"
		st.UserProfile.Name = "Ada"
		st.APIKeys["openai"] = "sk-test"
	})
	require.NoError(t, err)

	reopened, err := Open(s.Path())
	require.NoError(t, err)
	got := reopened.Get()
	assert.Equal(t, "dev-42", got.Audio.DefaultDevice)
	assert.Equal(t, "Ada", got.UserProfile.Name)
	assert.Equal(t, "sk-test", got.APIKeys["openai"])
}

func TestGetReturnsCopy(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Update(func(st *Settings) {
		st.APIKeys["groq"] = "original"
	}))

	snap := s.Get()
	snap.APIKeys["groq"] = "mutated"

	assert.Equal(t, "original", s.Get().APIKeys["groq"])
}

func TestUpdateNotifiesObservers(t *testing.T) {
	s := openTemp(t)

	got := make(chan Settings, 1)
	s.OnChange(func(st Settings) { got <- st })

	require.NoError(t, s.Update(func(st *Settings) {
		st.Shortcuts.RecordKey = "f13"
	}))

	select {
	case st := <-got:
		assert.Equal(t, "f13", st.Shortcuts.RecordKey)
	case <-time.After(time.Second):
		t.Fatal("observer not notified")
	}
}

func TestWatchSeesExternalEdit(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Watch())
	defer s.StopWatch()

	got := make(chan Settings, 1)
	s.OnChange(func(st Settings) { got <- st })

	external := `[shortcuts]
record_key = "f5"
record_modifier = "alt"
`
	require.NoError(t, os.WriteFile(s.Path(), []byte(external), 0644))

	select {
	case st := <-got:
		assert.Equal(t, "f5", st.Shortcuts.RecordKey)
		assert.Equal(t, "alt", st.Shortcuts.RecordModifier)
	case <-time.After(3 * time.Second):
		t.Fatal("external edit not observed")
	}
}

func TestEmptyShortcutClearsBinding(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Update(func(st *Settings) {
		st.Shortcuts.RecordKey = ""
		st.Shortcuts.RecordModifier = ""
	}))

	got := s.Get()
	assert.Empty(t, got.Shortcuts.RecordKey)
	assert.Empty(t, got.Shortcuts.RecordModifier)
}
