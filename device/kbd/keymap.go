package kbd

// Key identifies a logical key independently of its scancode encoding.
type Key uint8

const (
	KeyNone Key = iota

	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ

	Key0
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9

	KeyEnter
	KeySpace
	KeyBackspace
	KeyTab
	KeyEscape

	KeyMinus
	KeyEquals
	KeyLeftBracket
	KeyRightBracket
	KeyBackslash
	KeySemicolon
	KeyApostrophe
	KeyBacktick
	KeyComma
	KeyPeriod
	KeySlash

	KeyLeftShift
	KeyRightShift
	KeyLeftCtrl
	KeyRightCtrl
	KeyLeftAlt
	KeyRightAlt
	KeyCapsLock

	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
)

// keymapEntry maps a scancode to its logical key and the runes it produces
// without and with shift. Keys with no printable representation leave both
// runes zero.
type keymapEntry struct {
	key     Key
	normal  rune
	shifted rune
}

// keymap translates unprefixed set 1 scancodes for the US layout. The keypad
// block (0x47-0x53) is mapped to the navigation keys, matching its meaning
// when num-lock is off.
var keymap = [128]keymapEntry{
	0x01: {KeyEscape, '\x1b', '\x1b'},
	0x02: {Key1, '1', '!'},
	0x03: {Key2, '2', '@'},
	0x04: {Key3, '3', '#'},
	0x05: {Key4, '4', '$'},
	0x06: {Key5, '5', '%'},
	0x07: {Key6, '6', '^'},
	0x08: {Key7, '7', '&'},
	0x09: {Key8, '8', '*'},
	0x0a: {Key9, '9', '('},
	0x0b: {Key0, '0', ')'},
	0x0c: {KeyMinus, '-', '_'},
	0x0d: {KeyEquals, '=', '+'},
	0x0e: {KeyBackspace, '\b', '\b'},
	0x0f: {KeyTab, '\t', '\t'},
	0x10: {KeyQ, 'q', 'Q'},
	0x11: {KeyW, 'w', 'W'},
	0x12: {KeyE, 'e', 'E'},
	0x13: {KeyR, 'r', 'R'},
	0x14: {KeyT, 't', 'T'},
	0x15: {KeyY, 'y', 'Y'},
	0x16: {KeyU, 'u', 'U'},
	0x17: {KeyI, 'i', 'I'},
	0x18: {KeyO, 'o', 'O'},
	0x19: {KeyP, 'p', 'P'},
	0x1a: {KeyLeftBracket, '[', '{'},
	0x1b: {KeyRightBracket, ']', '}'},
	0x1c: {KeyEnter, '\n', '\n'},
	0x1d: {KeyLeftCtrl, 0, 0},
	0x1e: {KeyA, 'a', 'A'},
	0x1f: {KeyS, 's', 'S'},
	0x20: {KeyD, 'd', 'D'},
	0x21: {KeyF, 'f', 'F'},
	0x22: {KeyG, 'g', 'G'},
	0x23: {KeyH, 'h', 'H'},
	0x24: {KeyJ, 'j', 'J'},
	0x25: {KeyK, 'k', 'K'},
	0x26: {KeyL, 'l', 'L'},
	0x27: {KeySemicolon, ';', ':'},
	0x28: {KeyApostrophe, '\'', '"'},
	0x29: {KeyBacktick, '`', '~'},
	0x2a: {KeyLeftShift, 0, 0},
	0x2b: {KeyBackslash, '\\', '|'},
	0x2c: {KeyZ, 'z', 'Z'},
	0x2d: {KeyX, 'x', 'X'},
	0x2e: {KeyC, 'c', 'C'},
	0x2f: {KeyV, 'v', 'V'},
	0x30: {KeyB, 'b', 'B'},
	0x31: {KeyN, 'n', 'N'},
	0x32: {KeyM, 'm', 'M'},
	0x33: {KeyComma, ',', '<'},
	0x34: {KeyPeriod, '.', '>'},
	0x35: {KeySlash, '/', '?'},
	0x36: {KeyRightShift, 0, 0},
	0x38: {KeyLeftAlt, 0, 0},
	0x39: {KeySpace, ' ', ' '},
	0x3a: {KeyCapsLock, 0, 0},
	0x3b: {KeyF1, 0, 0},
	0x3c: {KeyF2, 0, 0},
	0x3d: {KeyF3, 0, 0},
	0x3e: {KeyF4, 0, 0},
	0x3f: {KeyF5, 0, 0},
	0x40: {KeyF6, 0, 0},
	0x41: {KeyF7, 0, 0},
	0x42: {KeyF8, 0, 0},
	0x43: {KeyF9, 0, 0},
	0x44: {KeyF10, 0, 0},
	0x47: {KeyHome, 0, 0},
	0x48: {KeyUp, 0, 0},
	0x49: {KeyPageUp, 0, 0},
	0x4b: {KeyLeft, 0, 0},
	0x4d: {KeyRight, 0, 0},
	0x4f: {KeyEnd, 0, 0},
	0x50: {KeyDown, 0, 0},
	0x51: {KeyPageDown, 0, 0},
	0x52: {KeyInsert, 0, 0},
	0x53: {KeyDelete, 0, 0},
	0x57: {KeyF11, 0, 0},
	0x58: {KeyF12, 0, 0},
}

// extKeymap translates scancodes that follow the 0xe0 extended prefix: the
// grey navigation block, keypad enter/slash and the right-hand modifiers.
var extKeymap = [128]keymapEntry{
	0x1c: {KeyEnter, '\n', '\n'},
	0x1d: {KeyRightCtrl, 0, 0},
	0x35: {KeySlash, '/', '/'},
	0x38: {KeyRightAlt, 0, 0},
	0x47: {KeyHome, 0, 0},
	0x48: {KeyUp, 0, 0},
	0x49: {KeyPageUp, 0, 0},
	0x4b: {KeyLeft, 0, 0},
	0x4d: {KeyRight, 0, 0},
	0x4f: {KeyEnd, 0, 0},
	0x50: {KeyDown, 0, 0},
	0x51: {KeyPageDown, 0, 0},
	0x52: {KeyInsert, 0, 0},
	0x53: {KeyDelete, 0, 0},
}

// printableRune returns the rune entry produces under mods, or 0 when the key
// has no printable representation. Caps-lock inverts the shift selection for
// letter keys only.
func printableRune(entry keymapEntry, mods Modifiers) rune {
	if entry.normal == 0 {
		return 0
	}

	shifted := mods&ModShift != 0
	if mods&ModCaps != 0 && entry.normal >= 'a' && entry.normal <= 'z' {
		shifted = !shifted
	}

	if shifted {
		return entry.shifted
	}
	return entry.normal
}
