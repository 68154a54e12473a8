package report

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
)

// chartPlaceholder replaces a chart whose image could not be decoded.
const chartPlaceholder = "[Chart image could not be loaded]"

// maxChartPixels bounds the decoded size of one chart. A few hundred KiB of
// compressed PNG can describe a bitmap of several GiB, so dimensions are
// checked from the header before any pixel is decoded.
const maxChartPixels = 4096 * 4096

var (
	errEmptyChart    = errors.New("empty chart payload")
	errChartTooLarge = errors.New("chart dimensions exceed pixel budget")
)

// chartResult is the outcome of decoding one chart payload. Exactly one of
// png and err is set.
type chartResult struct {
	png []byte
	err error
}

// decodeChart turns a data-URI style payload ("data:image/png;base64,....")
// into normalized PNG bytes. The header is everything up to the first comma;
// a payload without a comma is taken to be bare base64. Any raster format the
// image package can read is accepted and re-encoded as 8-bit RGBA PNG, so the
// assembler only ever sees one image shape.
func decodeChart(payload string) chartResult {
	if i := strings.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return chartResult{err: errEmptyChart}
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some canvas exporters drop the padding.
		var rawErr error
		if raw, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr != nil {
			return chartResult{err: fmt.Errorf("base64: %w", err)}
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return chartResult{err: fmt.Errorf("image: %w", err)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxChartPixels {
		return chartResult{err: fmt.Errorf("%w: %dx%d", errChartTooLarge, cfg.Width, cfg.Height)}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return chartResult{err: fmt.Errorf("image: %w", err)}
	}

	b := img.Bounds()
	norm := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(norm, norm.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, norm); err != nil {
		return chartResult{err: fmt.Errorf("png: %w", err)}
	}
	return chartResult{png: buf.Bytes()}
}
