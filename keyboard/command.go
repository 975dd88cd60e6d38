// Package keyboard captures system-wide key-downs while a session is active
// and turns them into a small command vocabulary for the UI.
package keyboard

import (
	"fmt"
	"strings"
)

// EventName is the UI channel every classified command is published on.
const EventName = "keyboard"

// Kind identifies a command variant
type Kind int

const (
	Cancel Kind = iota
	Submit
	Delete
	Literal
)

func (k Kind) String() string {
	switch k {
	case Cancel:
		return "cancel"
	case Submit:
		return "submit"
	case Delete:
		return "delete"
	case Literal:
		return "literal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Command is the classification of a single key-down.
// Text is only set for Literal.
type Command struct {
	Kind Kind
	Text string
}

// Wire returns the payload string sent to the UI
func (c Command) Wire() string {
	switch c.Kind {
	case Cancel:
		return "cmd:cancel"
	case Submit:
		return "cmd:submit"
	case Delete:
		return "cmd:delete"
	default:
		return "key:" + c.Text
	}
}

func (c Command) String() string {
	return c.Wire()
}

// ParseCommand parses a wire payload back into a Command
func ParseCommand(s string) (Command, error) {
	switch s {
	case "cmd:cancel":
		return Command{Kind: Cancel}, nil
	case "cmd:submit":
		return Command{Kind: Submit}, nil
	case "cmd:delete":
		return Command{Kind: Delete}, nil
	}

	if text, ok := strings.CutPrefix(s, "key:"); ok && text != "" {
		return Command{Kind: Literal, Text: text}, nil
	}

	return Command{}, fmt.Errorf("unknown command payload: %q", s)
}
