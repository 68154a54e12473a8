package document

// RGB is a concrete 8-bit colour.
type RGB struct {
	R, G, B int
}

// Palette maps every ColorClass to a concrete colour. A Palette is built once
// and never mutated, so a single value is shared by all concurrent renders.
type Palette struct {
	colors map[ColorClass]RGB
}

// DefaultPalette returns the fixed report palette: critical red, high orange,
// medium yellow, low/ok teal, accent blue, muted gray.
func DefaultPalette() Palette {
	return Palette{colors: map[ColorClass]RGB{
		ColorDefault: {15, 23, 42},
		ColorDanger:  {239, 68, 68},
		ColorWarn:    {251, 146, 60},
		ColorCaution: {245, 197, 24},
		ColorWatch:   {234, 88, 12},
		ColorOK:      {0, 212, 170},
		ColorAccent:  {0, 174, 239},
		ColorMuted:   {148, 163, 184},
		ColorInverse: {255, 255, 255},
		ColorHeader:  {30, 41, 59},
	}}
}

// Resolve returns the colour for c. Unknown classes resolve to the muted
// colour.
func (p Palette) Resolve(c ColorClass) RGB {
	if rgb, ok := p.colors[c]; ok {
		return rgb
	}
	return p.colors[ColorMuted]
}
