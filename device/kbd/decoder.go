package kbd

// Modifiers is a bitset describing the modifier state attached to a KeyEvent.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModCaps
)

// KeyEvent describes a single key press or release. Rune is non-zero only
// for presses of keys with a printable representation; modifier and
// navigation keys deliver events with a zero Rune.
type KeyEvent struct {
	Key     Key
	Mods    Modifiers
	Pressed bool
	Rune    rune
}

const (
	scanBreakBit       = 0x80
	scanExtendedPrefix = 0xe0
	scanError          = 0x00
	scanOverrun        = 0xff
)

// decoder converts a stream of set 1 scancode bytes into KeyEvents. It
// tracks the extended-sequence prefix and the latched modifier state across
// calls; held shift/ctrl/alt set their bit for as long as the key is down
// while caps-lock toggles its bit on each press.
type decoder struct {
	extended bool
	mods     Modifiers
}

// feed consumes one scancode byte. The bool return is false when the byte
// completes no event: prefix bytes, controller error codes and scancodes
// outside the keymap are absorbed. Error codes also drop any pending prefix
// so the decoder resynchronizes on the next byte.
func (d *decoder) feed(code uint8) (KeyEvent, bool) {
	switch code {
	case scanError, scanOverrun:
		d.extended = false
		return KeyEvent{}, false
	case scanExtendedPrefix:
		d.extended = true
		return KeyEvent{}, false
	}

	table := &keymap
	if d.extended {
		table = &extKeymap
		d.extended = false
	}

	pressed := code&scanBreakBit == 0
	entry := table[code&^uint8(scanBreakBit)]
	if entry.key == KeyNone {
		return KeyEvent{}, false
	}

	switch entry.key {
	case KeyLeftShift, KeyRightShift:
		d.setModifier(ModShift, pressed)
	case KeyLeftCtrl, KeyRightCtrl:
		d.setModifier(ModCtrl, pressed)
	case KeyLeftAlt, KeyRightAlt:
		d.setModifier(ModAlt, pressed)
	case KeyCapsLock:
		if pressed {
			d.mods ^= ModCaps
		}
	}

	ev := KeyEvent{Key: entry.key, Mods: d.mods, Pressed: pressed}
	if pressed {
		ev.Rune = printableRune(entry, d.mods)
	}

	return ev, true
}

func (d *decoder) setModifier(mod Modifiers, held bool) {
	if held {
		d.mods |= mod
	} else {
		d.mods &^= mod
	}
}
