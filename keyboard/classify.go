package keyboard

import "log/slog"

// Virtual key codes
const (
	vkBack     = 0x08
	vkReturn   = 0x0D
	vkShift    = 0x10
	vkEscape   = 0x1B
	vkDelete   = 0x2E
	vkLControl = 0xA2
)

// translateBufferSize bounds the units a single key press may produce
const translateBufferSize = 32

// controlCommand maps the fixed control keys. It runs before any state
// lookup so these keys are classified regardless of modifiers.
func controlCommand(vk uint32) (Command, bool) {
	switch vk {
	case vkDelete, vkBack:
		return Command{Kind: Delete}, true
	case vkEscape:
		return Command{Kind: Cancel}, true
	case vkReturn:
		return Command{Kind: Submit}, true
	}
	return Command{}, false
}

// Classifier turns raw key-downs into commands
type Classifier struct {
	api        KeyboardAPI
	translator Translator
}

// NewClassifier creates a classifier that queries api
func NewClassifier(api KeyboardAPI) *Classifier {
	return &Classifier{
		api:        api,
		translator: NewTranslator(api),
	}
}

// Classify returns the command for vk and whether the key should be
// suppressed. A false result means the key passes through untouched.
func (c *Classifier) Classify(vk uint32) (Command, bool) {
	if cmd, ok := controlCommand(vk); ok {
		return cmd, true
	}

	fg := c.api.ForegroundThread()

	var state KeyState
	c.readState(fg, &state)

	// Leave Control shortcuts to the focused application
	if state[vkLControl] > 1 {
		return Command{}, false
	}

	layout := c.api.KeyboardLayout(fg)
	scan := c.api.MapVirtualKey(vk, layout) << 16

	var buf [translateBufferSize]uint16
	units := c.translator.Translate(vk, scan, &state, layout, buf[:])
	if len(units) == 0 {
		return Command{}, false
	}

	text, ok := DecodeText(units)
	if !ok {
		return Command{}, false
	}

	return Command{Kind: Literal, Text: text}, true
}

// readState reads the keyboard state as seen by the focused thread.
// When the attach fails the state of the hook thread is used instead.
func (c *Classifier) readState(fg ThreadID, state *KeyState) {
	a := attachInput(c.api, c.api.CurrentThread(), fg)
	defer a.release()
	if !a.attached {
		slog.Debug("Input attach failed, reading hook thread state", "foreground", fg)
	}

	c.api.KeyboardState(state)
}

// inputAttachment scopes an input queue attach to one callback invocation
type inputAttachment struct {
	api      KeyboardAPI
	from, to ThreadID
	attached bool
}

func attachInput(api KeyboardAPI, from, to ThreadID) *inputAttachment {
	return &inputAttachment{
		api:      api,
		from:     from,
		to:       to,
		attached: api.AttachInput(from, to, true),
	}
}

// release detaches the queues. It runs whether or not the attach succeeded.
func (a *inputAttachment) release() {
	a.api.AttachInput(a.from, a.to, false)
}
