//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	getMessage          = user32.NewProc("GetMessageW")
	peekMessage         = user32.NewProc("PeekMessageW")
	postThreadMessage   = user32.NewProc("PostThreadMessageW")
	getAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	whKeyboardLL = 13
	wmKeydown    = 0x0100
	wmKeyup      = 0x0101
	wmSyskeydown = 0x0104
	wmSyskeyup   = 0x0105
	wmQuit       = 0x0012
	wmUser       = 0x0400
	pmNoRemove   = 0x0000
)

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// WindowsHotkey implements the Hotkey interface for Windows
type WindowsHotkey struct {
	mu      sync.Mutex
	matcher matcher
	events  chan Event
	tid     uint32
}

// NewHotkey creates a new Windows hotkey listener
func NewHotkey() Hotkey {
	return &WindowsHotkey{}
}

// Listen starts listening for the specified key combination. The hook is
// removed when ctx is done.
func (h *WindowsHotkey) Listen(ctx context.Context, combo KeyCombo) (<-chan Event, error) {
	h.mu.Lock()
	h.matcher = matcher{combo: combo}
	h.events = make(chan Event, 10)
	h.mu.Unlock()

	// Start hook in a goroutine
	errCh := make(chan error, 1)
	go h.runHook(errCh)

	// Wait for hook to be installed or error
	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		tid := h.tid
		h.mu.Unlock()
		postThreadMessage.Call(uintptr(tid), wmQuit, 0, 0)
	}()

	return h.events, nil
}

func (h *WindowsHotkey) runHook(errCh chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	h.mu.Lock()
	h.tid = windows.GetCurrentThreadId()
	h.mu.Unlock()

	// Create the message queue before the quit message can be posted
	var m msg
	peekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, wmUser, wmUser, pmNoRemove)

	hookProc := func(nCode int32, wParam uintptr, lParam uintptr) uintptr {
		if nCode >= 0 {
			kbInfo := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			h.handleKeyEvent(wParam, kbInfo)
		}
		r, _, _ := callNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
		return r
	}

	hook, _, err := setWindowsHookEx.Call(
		whKeyboardLL,
		windows.NewCallback(hookProc),
		0,
		0,
	)

	if hook == 0 {
		errCh <- fmt.Errorf("SetWindowsHookEx failed: %w", err)
		return
	}

	errCh <- nil

	for {
		r, _, _ := getMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			break
		}
	}

	unhookWindowsHookEx.Call(hook)
}

func (h *WindowsHotkey) handleKeyEvent(wParam uintptr, kbInfo *kbdllhookstruct) {
	var down bool
	switch wParam {
	case wmKeydown, wmSyskeydown:
		down = true
	case wmKeyup, wmSyskeyup:
		down = false
	default:
		return
	}

	h.mu.Lock()
	evt, ok := h.matcher.update(int(kbInfo.vkCode), down, currentModifiers())
	h.mu.Unlock()

	if ok {
		select {
		case h.events <- evt:
		default:
		}
	}
}

// ComboHeld reports whether a key-down of vk completes combo given the
// modifiers currently held. It is safe to call from other hook callbacks.
func ComboHeld(combo KeyCombo, vk int) bool {
	m := matcher{combo: combo}
	if !m.concerns(vk) {
		return false
	}
	return combo.held(vk, currentModifiers())
}

func currentModifiers() Modifiers {
	return Modifiers{
		Ctrl:  isKeyPressed(vkCtrl),
		Shift: isKeyPressed(vkShift),
		Alt:   isKeyPressed(vkAlt),
		Win:   isKeyPressed(vkLwin) || isKeyPressed(vkRwin),
	}
}

func isKeyPressed(vk int) bool {
	r, _, _ := getAsyncKeyState.Call(uintptr(vk))
	return r&0x8000 != 0
}
