//go:build !windows

package keyboard

// unsupportedInstaller refuses every install
type unsupportedInstaller struct{}

// NewSystemInstaller returns an installer that always fails with ErrUnsupported
func NewSystemInstaller() Installer {
	return unsupportedInstaller{}
}

func (unsupportedInstaller) Install(KeyDownFunc) (HookHandle, error) {
	return 0, ErrUnsupported
}

func (unsupportedInstaller) Uninstall(HookHandle) error {
	return ErrUnsupported
}

// nopAPI reports an empty keyboard state and translates nothing
type nopAPI struct{}

// NewSystemAPI returns a keyboard API with no OS backing
func NewSystemAPI() KeyboardAPI {
	return nopAPI{}
}

func (nopAPI) ForegroundThread() ThreadID                { return 0 }
func (nopAPI) CurrentThread() ThreadID                   { return 0 }
func (nopAPI) AttachInput(ThreadID, ThreadID, bool) bool { return false }
func (nopAPI) KeyboardState(*KeyState) bool              { return false }
func (nopAPI) KeyboardLayout(ThreadID) Layout            { return 0 }
func (nopAPI) MapVirtualKey(uint32, Layout) uint32       { return 0 }

func (nopAPI) ToUnicode(uint32, uint32, *KeyState, []uint16, Layout) int {
	return 0
}
