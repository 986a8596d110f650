//go:build windows

package hook

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetCursorPos        = user32.NewProc("GetCursorPos")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
	procGetSystemMetrics    = user32.NewProc("GetSystemMetrics")
	procSendInput           = user32.NewProc("SendInput")
	procGetModuleHandle     = kernel32.NewProc("GetModuleHandleW")
	procGetCurrentThreadId  = kernel32.NewProc("GetCurrentThreadId")
)

const (
	whKeyboardLL = 13

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012

	vkLButton = 0x01
	vkRButton = 0x02
	vkMButton = 0x04

	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type point struct {
	X, Y int32
}

type msg struct {
	Hwnd    syscall.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

// winHook owns the low-level keyboard hook. The hook and its message loop run
// on one locked OS thread; Stop posts WM_QUIT to that thread.
type winHook struct {
	*dispatcher

	mu       sync.Mutex
	running  bool
	threadID uint32
	handle   uintptr
}

// The low-level hook callback cannot carry a context pointer, so the single
// active instance is process-global.
var activeHook *winHook

// NewHook returns the Windows global input hook.
func NewHook() Hook {
	return &winHook{dispatcher: newDispatcher()}
}

func (h *winHook) Start() error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil
	}
	h.running = true
	activeHook = h
	h.mu.Unlock()

	ready := make(chan error, 1)

	// Hooks must be installed on the same thread that runs the message loop.
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		tid, _, _ := procGetCurrentThreadId.Call()
		hMod, _, _ := procGetModuleHandle.Call(0)

		handle, _, err := procSetWindowsHookEx.Call(
			whKeyboardLL,
			syscall.NewCallback(keyboardProc),
			hMod,
			0,
		)
		if handle == 0 {
			ready <- fmt.Errorf("SetWindowsHookEx failed: %v", err)
			return
		}

		h.mu.Lock()
		h.threadID = uint32(tid)
		h.handle = handle
		h.mu.Unlock()
		ready <- nil

		var m msg
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) <= 0 {
				break
			}
		}

		procUnhookWindowsHookEx.Call(handle)
	}()

	if err := <-ready; err != nil {
		h.mu.Lock()
		h.running = false
		activeHook = nil
		h.mu.Unlock()
		return err
	}
	return nil
}

func (h *winHook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil
	}
	h.running = false
	activeHook = nil
	if h.threadID != 0 {
		procPostThreadMessage.Call(uintptr(h.threadID), wmQuit, 0, 0)
		h.threadID = 0
	}
	h.handle = 0
	return nil
}

func keyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 && activeHook != nil {
		info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
		switch wParam {
		case wmKeyDown, wmSysKeyDown:
			activeHook.dispatch(KeyEvent{VK: uint16(info.VkCode), Down: true, When: time.Now()})
		case wmKeyUp, wmSysKeyUp:
			activeHook.dispatch(KeyEvent{VK: uint16(info.VkCode), Down: false, When: time.Now()})
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (h *winHook) Pointer() (Pointer, error) {
	var pt point
	ret, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if ret == 0 {
		return Pointer{}, fmt.Errorf("GetCursorPos failed: %v", err)
	}
	return Pointer{
		X:      float64(pt.X),
		Y:      float64(pt.Y),
		Left:   buttonDown(vkLButton),
		Right:  buttonDown(vkRButton),
		Middle: buttonDown(vkMButton),
	}, nil
}

func buttonDown(vk int) bool {
	state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
	return state&0x8000 != 0
}

func desktopMetrics() (Desktop, error) {
	left, _, _ := procGetSystemMetrics.Call(smXVirtualScreen)
	top, _, _ := procGetSystemMetrics.Call(smYVirtualScreen)
	width, _, _ := procGetSystemMetrics.Call(smCXVirtualScreen)
	height, _, _ := procGetSystemMetrics.Call(smCYVirtualScreen)

	d := Desktop{
		Left:   int(int32(left)),
		Top:    int(int32(top)),
		Width:  int(int32(width)),
		Height: int(int32(height)),
	}
	if d.Width <= 0 || d.Height <= 0 {
		return d, fmt.Errorf("GetSystemMetrics returned %dx%d virtual desktop", d.Width, d.Height)
	}
	return d, nil
}
