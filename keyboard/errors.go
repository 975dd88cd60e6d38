package keyboard

import "errors"

var (
	// ErrAlreadyActive is returned by Start while a capture session is running
	ErrAlreadyActive = errors.New("already active")

	// ErrRegistrationFailed is returned by Start when the OS refuses the hook
	ErrRegistrationFailed = errors.New("could not start listener")

	// ErrConsumerGone is returned by Bridge.Send once the receiving side has shut down
	ErrConsumerGone = errors.New("command consumer gone")

	// ErrBridgeClosed is returned by Bridge.Receive once the bridge is closed and drained
	ErrBridgeClosed = errors.New("command bridge closed")

	// ErrUnsupported is returned by installers on platforms without a low-level keyboard hook
	ErrUnsupported = errors.New("keyboard capture not supported on this platform")
)
