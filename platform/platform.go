package platform

import (
	"context"
	"fmt"
)

// KeyCombo represents a keyboard key combination
type KeyCombo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Win   bool
	Key   int // Virtual key code, 0 for a modifier-only combo
}

// EventType represents the type of hotkey event
type EventType int

const (
	Pressed EventType = iota
	Released
)

// Event represents a hotkey event
type Event struct {
	Type EventType
}

// Hotkey provides global hotkey detection
type Hotkey interface {
	Listen(ctx context.Context, combo KeyCombo) (<-chan Event, error)
}

// Modifiers is the modifier state at the time of a key event
type Modifiers struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Win   bool
}

// Virtual key codes of the modifiers
const (
	vkShift    = 0x10
	vkCtrl     = 0x11
	vkAlt      = 0x12
	vkLwin     = 0x5B
	vkRwin     = 0x5C
	vkLShift   = 0xA0
	vkRShift   = 0xA1
	vkLControl = 0xA2
	vkRControl = 0xA3
	vkLMenu    = 0xA4
	vkRMenu    = 0xA5
)

// matcher tracks press and release of a combo across key events
type matcher struct {
	combo   KeyCombo
	pressed bool
}

// update feeds one key event and reports a combo transition, if any
func (m *matcher) update(vk int, down bool, mods Modifiers) (Event, bool) {
	if !m.concerns(vk) {
		return Event{}, false
	}

	if down {
		if m.pressed || !m.modifiersMatch(mods) {
			return Event{}, false
		}
		m.pressed = true
		return Event{Type: Pressed}, true
	}

	if !m.pressed {
		return Event{}, false
	}
	m.pressed = false
	return Event{Type: Released}, true
}

// concerns reports whether vk is part of the combo
func (m *matcher) concerns(vk int) bool {
	if m.combo.Key != 0 {
		return vk == m.combo.Key
	}

	// Modifier-only combo, any of our modifiers counts
	switch vk {
	case vkCtrl, vkLControl, vkRControl:
		return m.combo.Ctrl
	case vkShift, vkLShift, vkRShift:
		return m.combo.Shift
	case vkAlt, vkLMenu, vkRMenu:
		return m.combo.Alt
	case vkLwin, vkRwin:
		return m.combo.Win
	}
	return false
}

func (m *matcher) modifiersMatch(mods Modifiers) bool {
	return mods.Ctrl == m.combo.Ctrl &&
		mods.Shift == m.combo.Shift &&
		mods.Alt == m.combo.Alt &&
		mods.Win == m.combo.Win
}

// held reports whether a key-down of vk with mods completes the combo
func (c KeyCombo) held(vk int, mods Modifiers) bool {
	m := matcher{combo: c}
	return m.concerns(vk) && m.modifiersMatch(mods)
}

// VKCode returns the Windows virtual key code for a key name
// Returns 0 for empty string (modifier-only hotkey)
func VKCode(key string) (int, error) {
	if key == "" {
		return 0, nil
	}

	codes := map[string]int{
		"a": 0x41, "b": 0x42, "c": 0x43, "d": 0x44, "e": 0x45,
		"f": 0x46, "g": 0x47, "h": 0x48, "i": 0x49, "j": 0x4A,
		"k": 0x4B, "l": 0x4C, "m": 0x4D, "n": 0x4E, "o": 0x4F,
		"p": 0x50, "q": 0x51, "r": 0x52, "s": 0x53, "t": 0x54,
		"u": 0x55, "v": 0x56, "w": 0x57, "x": 0x58, "y": 0x59, "z": 0x5A,
		"0": 0x30, "1": 0x31, "2": 0x32, "3": 0x33, "4": 0x34,
		"5": 0x35, "6": 0x36, "7": 0x37, "8": 0x38, "9": 0x39,
		"f1": 0x70, "f2": 0x71, "f3": 0x72, "f4": 0x73,
		"f5": 0x74, "f6": 0x75, "f7": 0x76, "f8": 0x77,
		"f9": 0x78, "f10": 0x79, "f11": 0x7A, "f12": 0x7B,
		"space": 0x20, "enter": 0x0D, "esc": 0x1B,
		"tab": 0x09, "backspace": 0x08, "pause": 0x13,
		"scrolllock": 0x91, "insert": 0x2D,
	}

	if code, ok := codes[key]; ok {
		return code, nil
	}

	return 0, fmt.Errorf("unknown key: %s", key)
}
