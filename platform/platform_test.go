package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_KeyCombo(t *testing.T) {
	m := matcher{combo: KeyCombo{Ctrl: true, Shift: true, Key: 0x4B}}
	mods := Modifiers{Ctrl: true, Shift: true}

	evt, ok := m.update(0x4B, true, mods)
	require.True(t, ok)
	assert.Equal(t, Pressed, evt.Type)

	// auto-repeat is swallowed
	_, ok = m.update(0x4B, true, mods)
	assert.False(t, ok)

	evt, ok = m.update(0x4B, false, Modifiers{})
	require.True(t, ok)
	assert.Equal(t, Released, evt.Type)

	_, ok = m.update(0x4B, false, Modifiers{})
	assert.False(t, ok)
}

func TestMatcher_WrongModifiers(t *testing.T) {
	m := matcher{combo: KeyCombo{Ctrl: true, Key: 0x4B}}

	_, ok := m.update(0x4B, true, Modifiers{Ctrl: true, Alt: true})
	assert.False(t, ok)
	_, ok = m.update(0x4B, true, Modifiers{})
	assert.False(t, ok)
	_, ok = m.update(0x4C, true, Modifiers{Ctrl: true})
	assert.False(t, ok)
}

func TestMatcher_ModifierOnly(t *testing.T) {
	m := matcher{combo: KeyCombo{Ctrl: true, Win: true}}

	_, ok := m.update(vkLControl, true, Modifiers{Ctrl: true})
	assert.False(t, ok, "win not held yet")

	evt, ok := m.update(vkLwin, true, Modifiers{Ctrl: true, Win: true})
	require.True(t, ok)
	assert.Equal(t, Pressed, evt.Type)

	_, ok = m.update(0x41, false, Modifiers{})
	assert.False(t, ok, "unrelated key")

	evt, ok = m.update(vkLControl, false, Modifiers{Win: true})
	require.True(t, ok)
	assert.Equal(t, Released, evt.Type)
}

func TestKeyCombo_Held(t *testing.T) {
	combo := KeyCombo{Ctrl: true, Shift: true, Key: 0x4B}

	assert.True(t, combo.held(0x4B, Modifiers{Ctrl: true, Shift: true}))
	assert.False(t, combo.held(0x4B, Modifiers{Ctrl: true}))
	assert.False(t, combo.held(0x4C, Modifiers{Ctrl: true, Shift: true}))
}

func TestVKCode(t *testing.T) {
	code, err := VKCode("k")
	require.NoError(t, err)
	assert.Equal(t, 0x4B, code)

	code, err = VKCode("")
	require.NoError(t, err)
	assert.Zero(t, code)

	_, err = VKCode("hyper")
	assert.Error(t, err)
}
