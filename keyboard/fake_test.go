package keyboard

import (
	"errors"
	"sync"
)

// fakeAPI simulates an ASCII layout. The foreground thread's state is only
// visible while the input queues are attached.
type fakeAPI struct {
	mu sync.Mutex

	fg, cur  ThreadID
	attachOK bool
	attached bool

	fgState  KeyState
	ownState KeyState
	layouts  map[ThreadID]Layout

	attachCalls int
	detachCalls int
	stateReads  int

	lastScan   uint32
	lastLayout Layout

	// toUnicode overrides the ASCII translation when set
	toUnicode func(vk uint32, buf []uint16) int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		fg:       100,
		cur:      7,
		attachOK: true,
		layouts:  map[ThreadID]Layout{100: 0x0409, 7: 0x0807},
	}
}

func (f *fakeAPI) ForegroundThread() ThreadID { return f.fg }
func (f *fakeAPI) CurrentThread() ThreadID    { return f.cur }

func (f *fakeAPI) AttachInput(from, to ThreadID, attach bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if attach {
		f.attachCalls++
		f.attached = f.attachOK
	} else {
		f.detachCalls++
		f.attached = false
	}
	return f.attachOK
}

func (f *fakeAPI) KeyboardState(state *KeyState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateReads++
	if f.attached {
		*state = f.fgState
	} else {
		*state = f.ownState
	}
	return true
}

func (f *fakeAPI) KeyboardLayout(thread ThreadID) Layout {
	return f.layouts[thread]
}

func (f *fakeAPI) MapVirtualKey(vk uint32, layout Layout) uint32 {
	return vk & 0xff
}

func (f *fakeAPI) ToUnicode(vk, scan uint32, state *KeyState, buf []uint16, layout Layout) int {
	f.mu.Lock()
	f.lastScan = scan
	f.lastLayout = layout
	override := f.toUnicode
	f.mu.Unlock()

	if override != nil {
		return override(vk, buf)
	}

	var r rune
	switch {
	case vk >= 'A' && vk <= 'Z':
		r = rune(vk)
		if state[vkShift]&0x80 == 0 {
			r += 'a' - 'A'
		}
	case vk >= '0' && vk <= '9', vk == ' ':
		r = rune(vk)
	default:
		return 0
	}
	buf[0] = uint16(r)
	return 1
}

func (f *fakeAPI) calls() (attach, detach int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attachCalls, f.detachCalls
}

// fakeInstaller records hook registrations
type fakeInstaller struct {
	mu         sync.Mutex
	next       HookHandle
	fn         KeyDownFunc
	installs   int
	uninstalls int
	failNext   error
	uninstErr  error
}

func (f *fakeInstaller) Install(fn KeyDownFunc) (HookHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return 0, err
	}
	if f.fn != nil {
		return 0, errors.New("hook already installed")
	}
	f.installs++
	f.next++
	f.fn = fn
	return f.next, nil
}

func (f *fakeInstaller) Uninstall(h HookHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uninstalls++
	f.fn = nil
	return f.uninstErr
}

// press simulates the OS delivering a key-down to the installed hook
func (f *fakeInstaller) press(vk uint32) (suppressed, delivered bool) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return false, false
	}
	return fn(vk), true
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	ch     chan string
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{ch: make(chan string, 64)}
}

func (p *recordingPublisher) Publish(event, payload string) bool {
	p.mu.Lock()
	p.events = append(p.events, event+"|"+payload)
	p.mu.Unlock()
	p.ch <- payload
	return true
}
