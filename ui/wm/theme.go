package wm

import "image/color"

// Logical cell colors follow the EGA numbering: 0 black, 1 blue, 2 green,
// 3 cyan, 4 red, 5 magenta, 6 brown, 7 light gray and 8-15 the bright
// counterparts of the first eight.

// borderGlyphs groups the code page 437 box-drawing glyphs used to frame
// windows.
type borderGlyphs struct {
	topLeft, topRight       byte
	bottomLeft, bottomRight byte
	horiz, vert             byte
}

var (
	borderSingle = borderGlyphs{0xda, 0xbf, 0xc0, 0xd9, 0xc4, 0xb3}
	borderDouble = borderGlyphs{0xc9, 0xbb, 0xc8, 0xbc, 0xcd, 0xba}
)

// theme bundles the colors, border glyphs and palette adjustments that make
// up a named look. The palette table remaps the 16 logical cell colors to
// console color indices while compositing. The dac table is programmed into
// the console palette when the theme is activated; this is what turns the
// whole surface amber or green without touching any cell attributes.
type theme struct {
	name string

	palette [16]uint8
	dac     [16]color.RGBA

	desktopFg, desktopBg uint8
	windowFg, windowBg   uint8
	borderFg, focusFg    uint8
	chromeFg, chromeBg   uint8

	border borderGlyphs

	// shadow enables a drop shadow right of and below each window frame.
	shadow bool

	// crt switches the desktop to the denser shade glyph for a scanline
	// look.
	crt bool
}

var identityPalette = [16]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

// themes holds the built-in looks selectable through Compositor.SetTheme.
// The first entry is the boot default.
var themes = []*theme{
	{
		name:    "dos",
		palette: identityPalette,
		dac: [16]color.RGBA{
			{R: 0, G: 0, B: 1},       /* black */
			{R: 0, G: 0, B: 128},     /* blue */
			{R: 0, G: 128, B: 1},     /* green */
			{R: 0, G: 128, B: 128},   /* cyan */
			{R: 128, G: 0, B: 1},     /* red */
			{R: 128, G: 0, B: 128},   /* magenta */
			{R: 64, G: 64, B: 1},     /* brown */
			{R: 128, G: 128, B: 128}, /* light gray */
			{R: 64, G: 64, B: 64},    /* dark gray */
			{R: 0, G: 0, B: 255},     /* light blue */
			{R: 0, G: 255, B: 1},     /* light green */
			{R: 0, G: 255, B: 255},   /* light cyan */
			{R: 255, G: 0, B: 1},     /* light red */
			{R: 255, G: 0, B: 255},   /* light magenta */
			{R: 255, G: 255, B: 1},   /* yellow */
			{R: 255, G: 255, B: 255}, /* white */
		},
		desktopFg: 3, desktopBg: 1,
		windowFg: 7, windowBg: 1,
		borderFg: 7, focusFg: 15,
		chromeFg: 0, chromeBg: 7,
		border: borderDouble,
		shadow: true,
	},
	{
		name:    "amber",
		palette: identityPalette,
		dac: [16]color.RGBA{
			{R: 0, G: 0, B: 0},
			{R: 64, G: 44, B: 0},
			{R: 96, G: 66, B: 0},
			{R: 112, G: 77, B: 0},
			{R: 80, G: 55, B: 0},
			{R: 88, G: 61, B: 0},
			{R: 104, G: 72, B: 0},
			{R: 160, G: 110, B: 0},
			{R: 72, G: 50, B: 0},
			{R: 136, G: 94, B: 0},
			{R: 176, G: 121, B: 0},
			{R: 192, G: 132, B: 0},
			{R: 152, G: 105, B: 0},
			{R: 168, G: 116, B: 0},
			{R: 224, G: 155, B: 0},
			{R: 255, G: 176, B: 0},
		},
		desktopFg: 8, desktopBg: 0,
		windowFg: 7, windowBg: 0,
		borderFg: 7, focusFg: 15,
		chromeFg: 0, chromeBg: 7,
		border: borderSingle,
		crt:    true,
	},
	{
		name:    "green",
		palette: identityPalette,
		dac: [16]color.RGBA{
			{R: 0, G: 0, B: 0},
			{R: 0, G: 64, B: 18},
			{R: 0, G: 96, B: 26},
			{R: 0, G: 112, B: 31},
			{R: 0, G: 80, B: 22},
			{R: 0, G: 88, B: 24},
			{R: 0, G: 104, B: 29},
			{R: 0, G: 160, B: 44},
			{R: 0, G: 72, B: 20},
			{R: 0, G: 136, B: 37},
			{R: 0, G: 176, B: 48},
			{R: 0, G: 192, B: 53},
			{R: 0, G: 152, B: 42},
			{R: 0, G: 168, B: 46},
			{R: 0, G: 224, B: 61},
			{R: 0, G: 255, B: 70},
		},
		desktopFg: 8, desktopBg: 0,
		windowFg: 7, windowBg: 0,
		borderFg: 7, focusFg: 15,
		chromeFg: 0, chromeBg: 7,
		border: borderSingle,
		crt:    true,
	},
	{
		name: "mono",
		// Collapse the color set to the four gray levels that remain
		// distinguishable on the grayscale ramp.
		palette: [16]uint8{0, 8, 7, 7, 8, 8, 7, 7, 8, 7, 15, 15, 7, 7, 15, 15},
		dac: [16]color.RGBA{
			{R: 0, G: 0, B: 0},
			{R: 64, G: 64, B: 64},
			{R: 96, G: 96, B: 96},
			{R: 112, G: 112, B: 112},
			{R: 80, G: 80, B: 80},
			{R: 88, G: 88, B: 88},
			{R: 104, G: 104, B: 104},
			{R: 160, G: 160, B: 160},
			{R: 72, G: 72, B: 72},
			{R: 136, G: 136, B: 136},
			{R: 176, G: 176, B: 176},
			{R: 192, G: 192, B: 192},
			{R: 152, G: 152, B: 152},
			{R: 168, G: 168, B: 168},
			{R: 224, G: 224, B: 224},
			{R: 255, G: 255, B: 255},
		},
		desktopFg: 8, desktopBg: 0,
		windowFg: 7, windowBg: 0,
		borderFg: 7, focusFg: 15,
		chromeFg: 0, chromeBg: 7,
		border: borderSingle,
	},
}

func findTheme(name string) *theme {
	for _, t := range themes {
		if t.name == name {
			return t
		}
	}

	return nil
}
