package keyboard

import (
	"strings"
	"unicode"
	"unicode/utf16"
)

// ThreadID is an OS thread identifier
type ThreadID uint32

// Layout is an OS keyboard layout handle
type Layout uintptr

// KeyState is a keyboard state snapshot, one byte per virtual key.
// The high bit marks the key as down, the low bit as toggled.
type KeyState [256]byte

// KeyboardAPI is the set of OS keyboard queries the classifier relies on.
// Every method is called on the hook thread from inside the callback.
type KeyboardAPI interface {
	// ForegroundThread returns the thread owning the focused window
	ForegroundThread() ThreadID
	// CurrentThread returns the calling thread
	CurrentThread() ThreadID
	// AttachInput attaches (or detaches) the input queue of from to the one of to
	AttachInput(from, to ThreadID, attach bool) bool
	// KeyboardState fills state with the calling thread's keyboard state
	KeyboardState(state *KeyState) bool
	// KeyboardLayout returns the active layout of thread
	KeyboardLayout(thread ThreadID) Layout
	// MapVirtualKey maps a virtual key to its extended scan code in layout
	MapVirtualKey(vk uint32, layout Layout) uint32
	// ToUnicode translates a key into buf and returns the number of units
	// written. Negative values mark a dead key.
	ToUnicode(vk, scan uint32, state *KeyState, buf []uint16, layout Layout) int
}

// Translator resolves a key press into the UTF-16 text the focused
// application would receive.
type Translator struct {
	api KeyboardAPI
}

// NewTranslator creates a translator backed by api
func NewTranslator(api KeyboardAPI) Translator {
	return Translator{api: api}
}

// Translate writes the units for the key into buf and returns the used prefix.
// Dead keys and keys without text yield nil.
func (t Translator) Translate(vk, scan uint32, state *KeyState, layout Layout, buf []uint16) []uint16 {
	n := t.api.ToUnicode(vk, scan, state, buf, layout)
	if n <= 0 {
		return nil
	}
	if n > len(buf) {
		n = len(buf)
	}
	return buf[:n]
}

// DecodeText decodes UTF-16 units strictly. Unpaired surrogates report false
// instead of being replaced.
func DecodeText(units []uint16) (string, bool) {
	if len(units) == 0 {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(units))
	for i := 0; i < len(units); i++ {
		r := rune(units[i])
		if !utf16.IsSurrogate(r) {
			b.WriteRune(r)
			continue
		}
		if i+1 >= len(units) {
			return "", false
		}
		pair := utf16.DecodeRune(r, rune(units[i+1]))
		if pair == unicode.ReplacementChar {
			return "", false
		}
		b.WriteRune(pair)
		i++
	}

	return b.String(), true
}
