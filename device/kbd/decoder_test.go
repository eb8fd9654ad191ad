package kbd

import (
	"reflect"
	"testing"
)

func TestDecoderFeed(t *testing.T) {
	specs := []struct {
		codes     []uint8
		expEvents []KeyEvent
	}{
		// Press and release a letter.
		{
			[]uint8{0x1e, 0x9e},
			[]KeyEvent{
				{Key: KeyA, Pressed: true, Rune: 'a'},
				{Key: KeyA},
			},
		},
		// Shift only applies while held down.
		{
			[]uint8{0x2a, 0x1e, 0xaa, 0x1e},
			[]KeyEvent{
				{Key: KeyLeftShift, Mods: ModShift, Pressed: true},
				{Key: KeyA, Mods: ModShift, Pressed: true, Rune: 'A'},
				{Key: KeyLeftShift},
				{Key: KeyA, Pressed: true, Rune: 'a'},
			},
		},
		// Digits shift to their symbols.
		{
			[]uint8{0x36, 0x03, 0xb6},
			[]KeyEvent{
				{Key: KeyRightShift, Mods: ModShift, Pressed: true},
				{Key: Key2, Mods: ModShift, Pressed: true, Rune: '@'},
				{Key: KeyRightShift},
			},
		},
		// Caps-lock upcases letters but leaves other keys alone.
		{
			[]uint8{0x3a, 0xba, 0x1e, 0x02},
			[]KeyEvent{
				{Key: KeyCapsLock, Mods: ModCaps, Pressed: true},
				{Key: KeyCapsLock, Mods: ModCaps},
				{Key: KeyA, Mods: ModCaps, Pressed: true, Rune: 'A'},
				{Key: Key1, Mods: ModCaps, Pressed: true, Rune: '1'},
			},
		},
		// Shift inverts the caps-lock selection for letters.
		{
			[]uint8{0x3a, 0xba, 0x2a, 0x1e},
			[]KeyEvent{
				{Key: KeyCapsLock, Mods: ModCaps, Pressed: true},
				{Key: KeyCapsLock, Mods: ModCaps},
				{Key: KeyLeftShift, Mods: ModCaps | ModShift, Pressed: true},
				{Key: KeyA, Mods: ModCaps | ModShift, Pressed: true, Rune: 'a'},
			},
		},
		// Caps-lock toggles on press only and a second press clears it.
		{
			[]uint8{0x3a, 0xba, 0x3a, 0xba, 0x1e},
			[]KeyEvent{
				{Key: KeyCapsLock, Mods: ModCaps, Pressed: true},
				{Key: KeyCapsLock, Mods: ModCaps},
				{Key: KeyCapsLock, Pressed: true},
				{Key: KeyCapsLock},
				{Key: KeyA, Pressed: true, Rune: 'a'},
			},
		},
		// Ctrl tags events without remapping the rune.
		{
			[]uint8{0x1d, 0x2e, 0x9d},
			[]KeyEvent{
				{Key: KeyLeftCtrl, Mods: ModCtrl, Pressed: true},
				{Key: KeyC, Mods: ModCtrl, Pressed: true, Rune: 'c'},
				{Key: KeyLeftCtrl},
			},
		},
		// Alt latches across non-printable keys.
		{
			[]uint8{0x38, 0x3b, 0xb8},
			[]KeyEvent{
				{Key: KeyLeftAlt, Mods: ModAlt, Pressed: true},
				{Key: KeyF1, Mods: ModAlt, Pressed: true},
				{Key: KeyLeftAlt},
			},
		},
		// The extended prefix covers exactly one following byte.
		{
			[]uint8{0xe0, 0x48, 0xe0, 0xc8, 0x1d},
			[]KeyEvent{
				{Key: KeyUp, Pressed: true},
				{Key: KeyUp},
				{Key: KeyLeftCtrl, Mods: ModCtrl, Pressed: true},
			},
		},
		// Right-hand modifiers arrive with the extended prefix.
		{
			[]uint8{0xe0, 0x1d, 0xe0, 0x9d},
			[]KeyEvent{
				{Key: KeyRightCtrl, Mods: ModCtrl, Pressed: true},
				{Key: KeyRightCtrl},
			},
		},
		// An overrun code drops a pending prefix so the next byte decodes
		// off the base table.
		{
			[]uint8{0xe0, 0xff, 0x1d},
			[]KeyEvent{
				{Key: KeyLeftCtrl, Mods: ModCtrl, Pressed: true},
			},
		},
		// Same for the error code.
		{
			[]uint8{0xe0, 0x00, 0x1d},
			[]KeyEvent{
				{Key: KeyLeftCtrl, Mods: ModCtrl, Pressed: true},
			},
		},
		// Unmapped scancodes are absorbed without producing events.
		{
			[]uint8{0x37, 0x54, 0xd4},
			nil,
		},
		// Editing keys map to their control runes.
		{
			[]uint8{0x1c, 0x9c, 0x0e, 0x0f, 0x39},
			[]KeyEvent{
				{Key: KeyEnter, Pressed: true, Rune: '\n'},
				{Key: KeyEnter},
				{Key: KeyBackspace, Pressed: true, Rune: '\b'},
				{Key: KeyTab, Pressed: true, Rune: '\t'},
				{Key: KeySpace, Pressed: true, Rune: ' '},
			},
		},
	}

	for specIndex, spec := range specs {
		var (
			dec decoder
			got []KeyEvent
		)

		for _, code := range spec.codes {
			if ev, ok := dec.feed(code); ok {
				got = append(got, ev)
			}
		}

		if !reflect.DeepEqual(got, spec.expEvents) {
			t.Errorf("[spec %d] expected events:\n%v\ngot:\n%v", specIndex, spec.expEvents, got)
		}
	}
}

func TestDecoderKeypadFallback(t *testing.T) {
	// The unprefixed keypad block decodes to the navigation keys both with
	// and without the extended prefix.
	specs := []struct {
		codes  []uint8
		expKey Key
	}{
		{[]uint8{0x47}, KeyHome},
		{[]uint8{0xe0, 0x47}, KeyHome},
		{[]uint8{0x50}, KeyDown},
		{[]uint8{0xe0, 0x50}, KeyDown},
		{[]uint8{0x53}, KeyDelete},
		{[]uint8{0xe0, 0x53}, KeyDelete},
	}

	for specIndex, spec := range specs {
		var (
			dec  decoder
			last KeyEvent
			seen int
		)

		for _, code := range spec.codes {
			if ev, ok := dec.feed(code); ok {
				last = ev
				seen++
			}
		}

		if seen != 1 {
			t.Errorf("[spec %d] expected 1 event; got %d", specIndex, seen)
			continue
		}

		if last.Key != spec.expKey || !last.Pressed || last.Rune != 0 {
			t.Errorf("[spec %d] expected press of key %d with no rune; got %+v", specIndex, spec.expKey, last)
		}
	}
}
