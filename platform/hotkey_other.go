//go:build !windows

package platform

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by Listen on platforms without global hotkeys
var ErrUnsupported = errors.New("global hotkeys not supported on this platform")

type unsupportedHotkey struct{}

// NewHotkey returns a listener that always fails
func NewHotkey() Hotkey {
	return unsupportedHotkey{}
}

func (unsupportedHotkey) Listen(context.Context, KeyCombo) (<-chan Event, error) {
	return nil, ErrUnsupported
}

// ComboHeld always reports false without global hotkeys
func ComboHeld(KeyCombo, int) bool {
	return false
}
