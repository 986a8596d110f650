//go:build windows

package hook

import (
	"fmt"
	"unicode/utf16"
	"unsafe"
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	mouseEventfMove        = 0x0001
	mouseEventfLeftDown    = 0x0002
	mouseEventfLeftUp      = 0x0004
	mouseEventfRightDown   = 0x0008
	mouseEventfRightUp     = 0x0010
	mouseEventfMiddleDown  = 0x0020
	mouseEventfMiddleUp    = 0x0040
	mouseEventfWheel       = 0x0800
	mouseEventfVirtualDesk = 0x4000
	mouseEventfAbsolute    = 0x8000

	keyEventfKeyUp   = 0x0002
	keyEventfUnicode = 0x0004
)

type mouseInput struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type keybdInput struct {
	Vk          uint16
	Scan        uint16
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// INPUT is a tagged union in the Windows API. The two variants below are laid
// out to the same 40-byte size on amd64 so SendInput accepts either.
type mouseInputPacket struct {
	Type uint32
	_    uint32
	Mi   mouseInput
}

type keybdInputPacket struct {
	Type uint32
	_    uint32
	Ki   keybdInput
	_    [8]byte
}

var inputSize = unsafe.Sizeof(mouseInputPacket{})

// winInjector synthesizes input through SendInput.
type winInjector struct{}

// NewInjector returns the Windows input injector.
func NewInjector() Injector {
	return &winInjector{}
}

func sendMouse(mi mouseInput) error {
	pkt := mouseInputPacket{Type: inputMouse, Mi: mi}
	ret, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&pkt)), inputSize)
	if ret == 0 {
		return fmt.Errorf("SendInput(mouse) failed: %v", err)
	}
	return nil
}

func sendKey(ki keybdInput) error {
	pkt := keybdInputPacket{Type: inputKeyboard, Ki: ki}
	ret, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&pkt)), inputSize)
	if ret == 0 {
		return fmt.Errorf("SendInput(keyboard) failed: %v", err)
	}
	return nil
}

func (i *winInjector) KeyDown(vk uint16) error {
	return sendKey(keybdInput{Vk: vk})
}

func (i *winInjector) KeyUp(vk uint16) error {
	return sendKey(keybdInput{Vk: vk, Flags: keyEventfKeyUp})
}

func (i *winInjector) KeyPress(vk uint16) error {
	if err := i.KeyDown(vk); err != nil {
		return err
	}
	return i.KeyUp(vk)
}

func (i *winInjector) MouseMove(nx, ny int) error {
	return sendMouse(mouseInput{
		Dx:    int32(nx),
		Dy:    int32(ny),
		Flags: mouseEventfMove | mouseEventfAbsolute | mouseEventfVirtualDesk,
	})
}

func (i *winInjector) MouseButton(button string, down bool) error {
	var flag uint32
	switch button {
	case "left":
		flag = mouseEventfLeftDown
		if !down {
			flag = mouseEventfLeftUp
		}
	case "right":
		flag = mouseEventfRightDown
		if !down {
			flag = mouseEventfRightUp
		}
	case "middle":
		flag = mouseEventfMiddleDown
		if !down {
			flag = mouseEventfMiddleUp
		}
	default:
		return fmt.Errorf("unknown mouse button: %s", button)
	}
	return sendMouse(mouseInput{Flags: flag})
}

func (i *winInjector) Wheel(amount int) error {
	return sendMouse(mouseInput{
		MouseData: uint32(int32(amount)),
		Flags:     mouseEventfWheel,
	})
}

func (i *winInjector) TypeText(text string) error {
	for _, unit := range utf16.Encode([]rune(text)) {
		if err := sendKey(keybdInput{Scan: unit, Flags: keyEventfUnicode}); err != nil {
			return err
		}
		if err := sendKey(keybdInput{Scan: unit, Flags: keyEventfUnicode | keyEventfKeyUp}); err != nil {
			return err
		}
	}
	return nil
}

func (i *winInjector) Desktop() (Desktop, error) {
	return desktopMetrics()
}
