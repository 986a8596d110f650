package action

import (
	"fmt"
	"strings"
)

// The symbolic key space is the Windows virtual-key code set, used as a fixed
// platform-independent identifier space. The table is static and bidirectional:
// unresolved names are an explicit ErrUnresolvableKey outcome, never a silent
// default.

// Virtual-key codes for keys the table names individually.
const (
	vkBackspace = 0x08
	vkTab       = 0x09
	vkEnter     = 0x0D
	vkShift     = 0x10
	vkCtrl      = 0x11
	vkAlt       = 0x12
	vkPause     = 0x13
	vkCapsLock  = 0x14
	vkEsc       = 0x1B
	vkSpace     = 0x20
	vkPageUp    = 0x21
	vkPageDown  = 0x22
	vkEnd       = 0x23
	vkHome      = 0x24
	vkLeft      = 0x25
	vkUp        = 0x26
	vkRight     = 0x27
	vkDown      = 0x28
	vkInsert    = 0x2D
	vkDelete    = 0x2E
	vkLWin      = 0x5B
	vkRWin      = 0x5C
	vkApps      = 0x5D
	vkNumLock   = 0x90
	vkScroll    = 0x91
	vkLShift    = 0xA0
	vkRShift    = 0xA1
	vkLCtrl     = 0xA2
	vkRCtrl     = 0xA3
	vkLAlt      = 0xA4
	vkRAlt      = 0xA5
)

var keyNameToVK = map[string]uint16{
	"BACKSPACE": vkBackspace, "TAB": vkTab, "ENTER": vkEnter, "PAUSE": vkPause,
	"CAPSLOCK": vkCapsLock, "ESC": vkEsc, "SPACE": vkSpace,
	"PAGEUP": vkPageUp, "PAGEDOWN": vkPageDown, "END": vkEnd, "HOME": vkHome,
	"LEFT": vkLeft, "UP": vkUp, "RIGHT": vkRight, "DOWN": vkDown,
	"INSERT": vkInsert, "DELETE": vkDelete, "APPS": vkApps,
	"NUMLOCK": vkNumLock, "SCROLLLOCK": vkScroll,

	"SHIFT": vkShift, "CTRL": vkCtrl, "ALT": vkAlt,
	"LSHIFT": vkLShift, "RSHIFT": vkRShift,
	"LCTRL": vkLCtrl, "RCTRL": vkRCtrl,
	"LALT": vkLAlt, "RALT": vkRAlt,
	"LWIN": vkLWin, "RWIN": vkRWin,

	"MULTIPLY": 0x6A, "ADD": 0x6B, "SUBTRACT": 0x6D, "DECIMAL": 0x6E, "DIVIDE": 0x6F,

	"SEMICOLON": 0xBA, "EQUALS": 0xBB, "COMMA": 0xBC, "MINUS": 0xBD,
	"PERIOD": 0xBE, "SLASH": 0xBF, "BACKTICK": 0xC0,
	"LBRACKET": 0xDB, "BACKSLASH": 0xDC, "RBRACKET": 0xDD, "QUOTE": 0xDE,
}

// aliasNames maps common alternate spellings (including the recording
// environment's native enum names for modifiers) onto canonical table names.
var aliasNames = map[string]string{
	"CONTROL": "CTRL", "ESCAPE": "ESC", "RETURN": "ENTER",
	"BACK": "BACKSPACE", "DEL": "DELETE", "CAPITAL": "CAPSLOCK",
	"PRIOR": "PAGEUP", "NEXT": "PAGEDOWN", "WIN": "LWIN", "WINDOWS": "LWIN",
	"SHIFTKEY": "SHIFT", "LSHIFTKEY": "LSHIFT", "RSHIFTKEY": "RSHIFT",
	"CONTROLKEY": "CTRL", "LCONTROLKEY": "LCTRL", "RCONTROLKEY": "RCTRL",
	"MENU": "ALT", "LMENU": "LALT", "RMENU": "RALT",
}

var vkToKeyName map[uint16]string

func init() {
	// Letters and digits
	for c := 'A'; c <= 'Z'; c++ {
		keyNameToVK[string(c)] = uint16(c)
	}
	for c := '0'; c <= '9'; c++ {
		keyNameToVK[string(c)] = uint16(c)
	}
	// Function keys F1..F24
	for i := 1; i <= 24; i++ {
		keyNameToVK[fmt.Sprintf("F%d", i)] = uint16(0x70 + i - 1)
	}
	// Numpad digits
	for i := 0; i <= 9; i++ {
		keyNameToVK[fmt.Sprintf("NUMPAD%d", i)] = uint16(0x60 + i)
	}

	vkToKeyName = make(map[uint16]string, len(keyNameToVK))
	for name, vk := range keyNameToVK {
		vkToKeyName[vk] = name
	}
}

// KeyCodeFor resolves a symbolic key name to its virtual-key code, trying the
// alias table for names not found directly.
func KeyCodeFor(name string) (uint16, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if vk, ok := keyNameToVK[n]; ok {
		return vk, nil
	}
	if canonical, ok := aliasNames[n]; ok {
		return keyNameToVK[canonical], nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnresolvableKey, name)
}

// KeyName returns the canonical symbolic name for a virtual-key code.
func KeyName(vk uint16) (string, bool) {
	name, ok := vkToKeyName[vk]
	return name, ok
}

// IsModifier reports whether vk is a shift, control, alt or win key.
func IsModifier(vk uint16) bool {
	switch vk {
	case vkShift, vkLShift, vkRShift,
		vkCtrl, vkLCtrl, vkRCtrl,
		vkAlt, vkLAlt, vkRAlt,
		vkLWin, vkRWin:
		return true
	}
	return false
}

// Shifted variants of the digit row and OEM punctuation keys on a US layout.
var shiftedDigits = map[uint16]rune{
	'0': ')', '1': '!', '2': '@', '3': '#', '4': '$',
	'5': '%', '6': '^', '7': '&', '8': '*', '9': '(',
}

var oemChars = map[uint16][2]rune{
	0xBA: {';', ':'}, 0xBB: {'=', '+'}, 0xBC: {',', '<'}, 0xBD: {'-', '_'},
	0xBE: {'.', '>'}, 0xBF: {'/', '?'}, 0xC0: {'`', '~'},
	0xDB: {'[', '{'}, 0xDC: {'\\', '|'}, 0xDD: {']', '}'}, 0xDE: {'\'', '"'},
}

// IsPrintable reports whether vk produces a printable character on its own:
// letters, digits, space, numpad digits and common punctuation.
func IsPrintable(vk uint16) bool {
	_, ok := PrintableChar(vk, false)
	return ok
}

// PrintableChar resolves the literal character a key produces, accounting for
// Shift. Returns false for keys that do not produce a printable character.
func PrintableChar(vk uint16, shift bool) (rune, bool) {
	switch {
	case vk >= 'A' && vk <= 'Z':
		if shift {
			return rune(vk), true
		}
		return rune(vk - 'A' + 'a'), true
	case vk >= '0' && vk <= '9':
		if shift {
			return shiftedDigits[vk], true
		}
		return rune(vk), true
	case vk >= 0x60 && vk <= 0x69: // numpad digits
		return rune(vk - 0x60 + '0'), true
	case vk == vkSpace:
		return ' ', true
	}
	if pair, ok := oemChars[vk]; ok {
		if shift {
			return pair[1], true
		}
		return pair[0], true
	}
	return 0, false
}
