package document

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ─── LAYOUT CONSTANTS ─────────────────────────────────────────────────────────

const (
	marginMM       = 18.0
	bottomMarginMM = 16.0
	indentStepMM   = 5.0
	borderGapMM    = 2.5
	fontFamily     = "Helvetica"
)

// fontSizes maps each SizeClass to a point size.
var fontSizes = map[SizeClass]float64{
	SizeBody:     11,
	SizeTitle:    32,
	SizeHeading1: 18,
	SizeHeading2: 14,
	SizeHeading3: 12,
	SizeBanner:   14,
	SizeSmall:    10,
	SizeFine:     9,
}

// Meta is document-level information written into the PDF info dictionary and
// the running footer.
type Meta struct {
	Title   string
	Subject string
	Author  string
	// CreatedAt is written as the PDF creation date. It is the only
	// time-dependent value the assembler emits; fixing it makes output
	// byte-for-byte reproducible.
	CreatedAt time.Time
	// FooterNote is printed left of the page number on every page.
	FooterNote string
}

// PDFAssembler serializes block sequences to PDF. It holds only the immutable
// palette and is safe for concurrent use.
type PDFAssembler struct {
	palette Palette
}

// NewPDFAssembler returns an assembler that resolves colour classes through p.
func NewPDFAssembler(p Palette) *PDFAssembler {
	return &PDFAssembler{palette: p}
}

// Assemble renders blocks in order into a single PDF. A first page is always
// opened; PageBreak blocks open subsequent ones.
func (a *PDFAssembler) Assemble(meta Meta, blocks []Block) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	w := &pdfWriter{pdf: pdf, palette: a.palette, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetCreationDate(meta.CreatedAt)
	pdf.SetModificationDate(meta.CreatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(meta.Title, true)
	pdf.SetSubject(meta.Subject, true)
	pdf.SetAuthor(meta.Author, true)
	pdf.SetCreator(meta.Author, true)
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, bottomMarginMM+4)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() { w.footer(meta.FooterNote) })
	pdf.AddPage()

	for i, b := range blocks {
		w.write(i, b)
		if pdf.Err() {
			return nil, fmt.Errorf("document: block %d (%T): %w", i, b, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("document: output: %w", err)
	}
	return buf.Bytes(), nil
}

// ─── WRITER ───────────────────────────────────────────────────────────────────

// pdfWriter carries the per-document state of one Assemble call.
type pdfWriter struct {
	pdf     *gofpdf.Fpdf
	palette Palette
	tr      func(string) string
}

func (w *pdfWriter) write(idx int, b Block) {
	switch v := b.(type) {
	case Heading:
		w.heading(v)
	case Paragraph:
		w.paragraph(v.Text, v.Style)
	case KeyValueList:
		w.keyValueList(v)
	case Table:
		w.table(v)
	case Image:
		w.image(idx, v)
	case PageBreak:
		w.pdf.AddPage()
	}
}

func (w *pdfWriter) contentWidth() float64 {
	pageW, _ := w.pdf.GetPageSize()
	left, _, right, _ := w.pdf.GetMargins()
	return pageW - left - right
}

func (w *pdfWriter) setFont(s Style) {
	style := ""
	if s.Bold {
		style += "B"
	}
	if s.Italic {
		style += "I"
	}
	w.pdf.SetFont(fontFamily, style, fontSizes[s.Size])
}

func (w *pdfWriter) setTextColor(c ColorClass) {
	rgb := w.palette.Resolve(c)
	w.pdf.SetTextColor(rgb.R, rgb.G, rgb.B)
}

func (w *pdfWriter) setFillColor(c ColorClass) {
	rgb := w.palette.Resolve(c)
	w.pdf.SetFillColor(rgb.R, rgb.G, rgb.B)
}

func (w *pdfWriter) lineHeight(s SizeClass) float64 {
	return fontSizes[s] * 0.5
}

func (w *pdfWriter) spaceAbove(n int) {
	if n > 0 {
		w.pdf.Ln(float64(n) * 2.5)
	}
}

func alignStr(a Align) string {
	if a == AlignCenter {
		return "C"
	}
	return "L"
}

func (w *pdfWriter) heading(h Heading) {
	s := h.Style
	s.Bold = true
	switch h.Level {
	case 1:
		s.Size = SizeHeading1
		if s.Fill == "" {
			s.Fill = ColorAccent
		}
		if s.Color == "" {
			s.Color = ColorInverse
		}
	case 2:
		s.Size = SizeHeading2
	default:
		s.Size = SizeHeading3
	}
	if s.SpaceAbove == 0 && h.Level > 1 {
		s.SpaceAbove = 2
	}
	w.paragraph(h.Text, s)
	w.pdf.Ln(2)
}

func (w *pdfWriter) paragraph(text string, s Style) {
	w.spaceAbove(s.SpaceAbove)
	w.setFont(s)
	w.setTextColor(s.Color)

	left, _, _, _ := w.pdf.GetMargins()
	indent := float64(s.Indent) * indentStepMM
	if s.LeftBorder {
		indent += borderGapMM * 2
	}
	x := left + indent
	width := w.contentWidth() - indent

	fill := s.Fill != ""
	if fill {
		w.setFillColor(s.Fill)
	}

	w.pdf.SetX(x)
	y0 := w.pdf.GetY()
	page := w.pdf.PageNo()
	w.pdf.MultiCell(width, w.lineHeight(s.Size), w.tr(text), "", alignStr(s.Align), fill)

	// A callout that spilled onto a new page gets no bar; a bar spanning two
	// pages cannot be drawn as one line.
	if s.LeftBorder && w.pdf.PageNo() == page {
		rgb := w.palette.Resolve(s.Color)
		w.pdf.SetDrawColor(rgb.R, rgb.G, rgb.B)
		w.pdf.SetLineWidth(1)
		bx := x - borderGapMM
		w.pdf.Line(bx, y0, bx, w.pdf.GetY())
		w.pdf.SetLineWidth(0.2)
	}
	w.pdf.Ln(1)
}

func (w *pdfWriter) keyValueList(l KeyValueList) {
	w.spaceAbove(l.Style.SpaceAbove)
	for _, it := range l.Items {
		s := l.Style
		s.SpaceAbove = 0
		if it.Color != "" {
			s.Color = it.Color
		}
		line := "• " + it.Value
		if it.Key != "" {
			line = "• " + it.Key + ": " + it.Value
		}
		w.paragraph(line, s)
	}
}

func (w *pdfWriter) table(t Table) {
	w.spaceAbove(t.Style.SpaceAbove)
	widths := w.columnWidths(t)
	size := t.Style.Size
	if size == SizeBody {
		size = SizeSmall
	}
	h := w.lineHeight(size) + 2

	// Header.
	w.pdf.SetFont(fontFamily, "B", fontSizes[size])
	w.setFillColor(ColorHeader)
	w.setTextColor(ColorInverse)
	for i, head := range t.Header {
		w.pdf.CellFormat(widths[i], h, w.fit(head, widths[i]), "1", 0, "L", true, 0, "")
	}
	w.pdf.Ln(-1)

	// Body.
	for _, row := range t.Rows {
		for i, c := range row {
			if i >= len(widths) {
				break
			}
			style := ""
			if c.Bold {
				style = "B"
			}
			w.pdf.SetFont(fontFamily, style, fontSizes[size])
			w.setTextColor(c.Color)
			w.pdf.CellFormat(widths[i], h, w.fit(c.Text, widths[i]), "1", 0, "L", false, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.Ln(2)
}

// columnWidths scales the relative widths of t to the content width. Missing
// or non-positive weights count as 1.
func (w *pdfWriter) columnWidths(t Table) []float64 {
	n := len(t.Header)
	weights := make([]float64, n)
	total := 0.0
	for i := range n {
		weights[i] = 1
		if i < len(t.Widths) && t.Widths[i] > 0 {
			weights[i] = t.Widths[i]
		}
		total += weights[i]
	}
	cw := w.contentWidth()
	for i := range weights {
		weights[i] = weights[i] / total * cw
	}
	return weights
}

// fit translates s and truncates it with an ellipsis so it fits a cell of
// width mm, leaving cell padding.
func (w *pdfWriter) fit(s string, width float64) string {
	out := w.tr(s)
	limit := width - 2.5
	if w.pdf.GetStringWidth(out) <= limit {
		return out
	}
	ell := "..."
	for len(out) > 0 && w.pdf.GetStringWidth(out+ell) > limit {
		out = out[:len(out)-1]
	}
	return out + ell
}

func (w *pdfWriter) image(idx int, img Image) {
	name := img.Name
	if name == "" {
		name = fmt.Sprintf("image-%d", idx)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	info := w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	if info == nil || w.pdf.Err() {
		return
	}

	pct := img.WidthPct
	if pct <= 0 || pct > 100 {
		pct = 90
	}
	cw := w.contentWidth()
	width := cw * pct / 100
	height := width * info.Height() / info.Width()

	left, _, _, _ := w.pdf.GetMargins()
	x := left + (cw-width)/2
	w.pdf.ImageOptions(name, x, 0, width, height, true, opts, 0, "")
	w.pdf.Ln(3)
}

func (w *pdfWriter) footer(note string) {
	w.pdf.SetY(-bottomMarginMM)
	w.pdf.SetFont(fontFamily, "I", fontSizes[SizeFine])
	w.setTextColor(ColorMuted)
	cw := w.contentWidth()
	if note != "" {
		w.pdf.CellFormat(cw/2, 8, w.tr(note), "", 0, "L", false, 0, "")
		w.pdf.CellFormat(cw/2, 8, fmt.Sprintf("Page %d of {nb}", w.pdf.PageNo()), "", 0, "R", false, 0, "")
		return
	}
	w.pdf.CellFormat(cw, 8, fmt.Sprintf("Page %d of {nb}", w.pdf.PageNo()), "", 0, "C", false, 0, "")
}
