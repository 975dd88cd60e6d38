//go:build windows

package keyboard

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	setWindowsHookEx         = user32.NewProc("SetWindowsHookExW")
	callNextHookEx           = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx      = user32.NewProc("UnhookWindowsHookEx")
	peekMessage              = user32.NewProc("PeekMessageW")
	msgWaitForMultipleObjEx  = user32.NewProc("MsgWaitForMultipleObjectsEx")
	postThreadMessage        = user32.NewProc("PostThreadMessageW")
	getForegroundWindow      = user32.NewProc("GetForegroundWindow")
	getWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	attachThreadInput        = user32.NewProc("AttachThreadInput")
	getKeyboardState         = user32.NewProc("GetKeyboardState")
	getKeyboardLayout        = user32.NewProc("GetKeyboardLayout")
	mapVirtualKeyEx          = user32.NewProc("MapVirtualKeyExW")
	toUnicodeEx              = user32.NewProc("ToUnicodeEx")
)

const (
	whKeyboardLL   = 13
	hcAction       = 0
	wmKeydown      = 0x0100
	wmQuit         = 0x0012
	wmUser         = 0x0400
	pmNoRemove     = 0x0000
	pmRemove       = 0x0001
	mapvkVkToVscEx = 4

	qsAllInput         = 0x04FF
	mwmoInputAvailable = 0x0004
	waitObject0        = 0x00000000
	infinite           = 0xFFFFFFFF
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

// winAPI implements KeyboardAPI with user32
type winAPI struct{}

// NewSystemAPI returns the user32 backed keyboard API
func NewSystemAPI() KeyboardAPI {
	return winAPI{}
}

func (winAPI) ForegroundThread() ThreadID {
	hwnd, _, _ := getForegroundWindow.Call()
	tid, _, _ := getWindowThreadProcessId.Call(hwnd, 0)
	return ThreadID(tid)
}

func (winAPI) CurrentThread() ThreadID {
	return ThreadID(windows.GetCurrentThreadId())
}

func (winAPI) AttachInput(from, to ThreadID, attach bool) bool {
	var flag uintptr
	if attach {
		flag = 1
	}
	r, _, _ := attachThreadInput.Call(uintptr(from), uintptr(to), flag)
	return r != 0
}

func (winAPI) KeyboardState(state *KeyState) bool {
	r, _, _ := getKeyboardState.Call(uintptr(unsafe.Pointer(&state[0])))
	return r != 0
}

func (winAPI) KeyboardLayout(thread ThreadID) Layout {
	hkl, _, _ := getKeyboardLayout.Call(uintptr(thread))
	return Layout(hkl)
}

func (winAPI) MapVirtualKey(vk uint32, layout Layout) uint32 {
	r, _, _ := mapVirtualKeyEx.Call(uintptr(vk), mapvkVkToVscEx, uintptr(layout))
	return uint32(r)
}

func (winAPI) ToUnicode(vk, scan uint32, state *KeyState, buf []uint16, layout Layout) int {
	if len(buf) == 0 {
		return 0
	}
	r, _, _ := toUnicodeEx.Call(
		uintptr(vk),
		uintptr(scan),
		uintptr(unsafe.Pointer(&state[0])),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		0,
		uintptr(layout),
	)
	return int(int32(r))
}

// activeProc is the callback context of the installed hook. It is set
// before SetWindowsHookExW and cleared after UnhookWindowsHookEx.
var activeProc atomic.Pointer[KeyDownFunc]

// hookCallback is created once; NewCallback slots are never released.
var hookCallback = windows.NewCallback(rawCallback)

// rawCallback is the only code running directly under the OS callback.
// It decodes the event and hands the virtual key to the session.
func rawCallback(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) == hcAction && wParam == wmKeydown {
		if fn := activeProc.Load(); fn != nil {
			kbInfo := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			if (*fn)(kbInfo.vkCode) {
				return 1
			}
		}
	}
	r, _, _ := callNextHookEx.Call(0, nCode, wParam, lParam)
	return r
}

type installResult struct {
	handle HookHandle
	err    error
}

// hookThread owns the OS thread the hook was registered from. Low-level
// hooks are called on that thread, so it has to keep pumping messages
// until stop is signaled.
type hookThread struct {
	tid  uint32
	stop windows.Handle
	done chan struct{}
}

// WindowsInstaller installs WH_KEYBOARD_LL hooks
type WindowsInstaller struct {
	mu      sync.Mutex
	threads map[HookHandle]*hookThread
}

// NewSystemInstaller returns the Windows hook installer
func NewSystemInstaller() Installer {
	return &WindowsInstaller{
		threads: make(map[HookHandle]*hookThread),
	}
}

// Install registers fn as the keyboard hook callback
func (w *WindowsInstaller) Install(fn KeyDownFunc) (HookHandle, error) {
	if !activeProc.CompareAndSwap(nil, &fn) {
		return 0, errors.New("a keyboard hook is already registered")
	}

	stop, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		activeProc.Store(nil)
		return 0, fmt.Errorf("CreateEvent failed: %w", err)
	}

	ready := make(chan installResult, 1)
	t := &hookThread{stop: stop, done: make(chan struct{})}
	go t.run(ready)

	res := <-ready
	if res.err != nil {
		<-t.done
		windows.CloseHandle(stop)
		activeProc.Store(nil)
		return 0, res.err
	}

	w.mu.Lock()
	w.threads[res.handle] = t
	w.mu.Unlock()

	return res.handle, nil
}

// Uninstall stops the hook thread and waits until the hook is removed
func (w *WindowsInstaller) Uninstall(h HookHandle) error {
	w.mu.Lock()
	t, ok := w.threads[h]
	delete(w.threads, h)
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown hook handle %#x", uintptr(h))
	}
	defer activeProc.Store(nil)

	if err := windows.SetEvent(t.stop); err != nil {
		r, _, perr := postThreadMessage.Call(uintptr(t.tid), wmQuit, 0, 0)
		if r == 0 {
			// Neither signal reached the thread. Remove the hook from here;
			// the thread and its handle are leaked.
			unhookWindowsHookEx.Call(uintptr(h))
			return fmt.Errorf("failed to stop hook thread: %w", errors.Join(err, perr))
		}
	}

	<-t.done
	windows.CloseHandle(t.stop)
	return nil
}

func (t *hookThread) run(ready chan<- installResult) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(t.done)

	t.tid = windows.GetCurrentThreadId()

	// Make sure the thread has a message queue before anyone posts to it
	var m msg
	peekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, wmUser, wmUser, pmNoRemove)

	hook, _, err := setWindowsHookEx.Call(whKeyboardLL, hookCallback, 0, 0)
	if hook == 0 {
		ready <- installResult{err: fmt.Errorf("SetWindowsHookExW failed: %w", err)}
		return
	}

	ready <- installResult{handle: HookHandle(hook)}

	if err := pumpUntil(t.stop); err != nil {
		slog.Error("Keyboard hook message loop failed", "error", err)
	}

	unhookWindowsHookEx.Call(hook)
}

// pumpUntil dispatches messages on the calling thread until stop is
// signaled or WM_QUIT arrives. Hook callbacks run from inside PeekMessageW.
func pumpUntil(stop windows.Handle) error {
	var m msg
	for {
		r, _, err := msgWaitForMultipleObjEx.Call(
			1,
			uintptr(unsafe.Pointer(&stop)),
			infinite,
			qsAllInput,
			mwmoInputAvailable,
		)
		switch uint32(r) {
		case waitObject0:
			return nil
		case waitObject0 + 1:
			for {
				got, _, _ := peekMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
				if got == 0 {
					break
				}
				if m.message == wmQuit {
					return nil
				}
			}
		default:
			return fmt.Errorf("MsgWaitForMultipleObjectsEx failed: %w", err)
		}
	}
}
