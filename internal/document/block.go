// Package document defines the block model that section builders emit and the
// assembler that serializes a block sequence into a PDF.
//
// Blocks carry semantic styles only. A ColorClass such as "danger" becomes a
// concrete RGB value inside the assembler, through the Palette it was built
// with. Nothing upstream sees a pixel value.
package document

// ─── STYLE ────────────────────────────────────────────────────────────────────

// ColorClass is a semantic severity label resolved to a concrete colour at
// serialization time.
type ColorClass string

const (
	ColorDefault ColorClass = ""        // body text
	ColorDanger  ColorClass = "danger"  // critical
	ColorWarn    ColorClass = "warn"    // high
	ColorCaution ColorClass = "caution" // medium
	ColorWatch   ColorClass = "watch"   // deep orange, transaction watch flag
	ColorOK      ColorClass = "ok"      // low / normal
	ColorAccent  ColorClass = "accent"  // section banners, info alerts
	ColorMuted   ColorClass = "muted"   // unknown categories, footnotes
	ColorInverse ColorClass = "inverse" // text drawn on a filled background
	ColorHeader  ColorClass = "header"  // table header fill
)

// SizeClass is a semantic font size.
type SizeClass int

const (
	SizeBody SizeClass = iota
	SizeTitle
	SizeHeading1
	SizeHeading2
	SizeHeading3
	SizeBanner
	SizeSmall
	SizeFine
)

// Align is a horizontal text alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Style holds the presentation attributes shared by every block.
type Style struct {
	Bold       bool
	Italic     bool
	Color      ColorClass
	Fill       ColorClass // background; empty means none
	Size       SizeClass
	Indent     int // indentation steps, each step is a fixed width
	Align      Align
	LeftBorder bool // callout bar drawn in Color along the left edge
	SpaceAbove int  // blank half-lines before the block
}

// ─── BLOCKS ───────────────────────────────────────────────────────────────────

// Block is one unit of document content. The concrete types below are the
// complete set; the assembler switches over them.
type Block interface {
	block()
}

// Heading is a section or subsection title. Level 1 headings are rendered as
// filled banners.
type Heading struct {
	Text  string
	Level int
	Style Style
}

// Paragraph is free-flowing text.
type Paragraph struct {
	Text  string
	Style Style
}

// KeyValue is one entry of a KeyValueList. An empty Key renders Value alone.
type KeyValue struct {
	Key   string
	Value string
	Color ColorClass
}

// KeyValueList is a bulleted list of "Key: Value" lines.
type KeyValueList struct {
	Items []KeyValue
	Style Style
}

// Cell is one table cell.
type Cell struct {
	Text  string
	Color ColorClass
	Bold  bool
}

// Table is a grid with a header row. Widths are relative weights, one per
// column; they are scaled to the page width on output.
type Table struct {
	Header []string
	Rows   [][]Cell
	Widths []float64
	Style  Style
}

// Image is a raster image. Data is always PNG: builders normalize whatever
// they decoded before emitting the block.
type Image struct {
	Name     string
	Data     []byte
	WidthPct float64 // share of the content width, 0 < WidthPct <= 100
}

// PageBreak starts a new page.
type PageBreak struct{}

func (Heading) block()      {}
func (Paragraph) block()    {}
func (KeyValueList) block() {}
func (Table) block()        {}
func (Image) block()        {}
func (PageBreak) block()    {}

// Text returns the printable text of b, flattened to a single string. Tables
// and lists join their cells with " | " and newlines. Images and page breaks
// return "". Used for tests and for plain-text previews.
func Text(b Block) string {
	switch v := b.(type) {
	case Heading:
		return v.Text
	case Paragraph:
		return v.Text
	case KeyValueList:
		out := ""
		for i, it := range v.Items {
			if i > 0 {
				out += "\n"
			}
			if it.Key == "" {
				out += it.Value
			} else {
				out += it.Key + ": " + it.Value
			}
		}
		return out
	case Table:
		out := joinRow(v.Header)
		for _, row := range v.Rows {
			cells := make([]string, len(row))
			for i, c := range row {
				cells[i] = c.Text
			}
			out += "\n" + joinRow(cells)
		}
		return out
	default:
		return ""
	}
}

func joinRow(cells []string) string {
	out := ""
	for i, c := range cells {
		if i > 0 {
			out += " | "
		}
		out += c
	}
	return out
}
