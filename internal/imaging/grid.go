package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// GridOverlayResult contains the image with grid overlay
type GridOverlayResult struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	ImageBase64    string  `json:"image_base64"`
	MimeType       string  `json:"mime_type"`
	SpacingMM      float64 `json:"spacing_mm"`
	SpacingXPixels int     `json:"spacing_x_pixels"`
	SpacingYPixels int     `json:"spacing_y_pixels"`
}

// GridOverlay renders a plane at native size and draws a grid every
// spacingMM millimetres across and along the lane. Labels give the
// position of each crossing in millimetres from the image origin.
func GridOverlay(p *Plane, opts RenderOptions, spacingMM float64, showCoordinates bool, gridColorHex string) (*GridOverlayResult, error) {
	if spacingMM <= 0 {
		return nil, fmt.Errorf("grid spacing must be positive, got %g mm", spacingMM)
	}
	tres, lres := p.Layout.TransverseResolution, p.Layout.LongitudinalResolution
	if tres <= 0 || lres <= 0 {
		return nil, fmt.Errorf("image has no usable resolution for a millimetre grid")
	}
	stepX := max(1, int(math.Round(spacingMM/tres)))
	stepY := max(1, int(math.Round(spacingMM/lres)))

	opts.Scale, opts.FlipVertical = 1, false
	img, err := RenderImage(p, opts)
	if err != nil {
		return nil, err
	}

	gridColor, err := parseGridColor(gridColorHex)
	if err != nil {
		gridColor = color.NRGBA{255, 0, 0, 128} // Default: semi-transparent red
	}

	width, height := p.Region.Width, p.Region.Height
	result := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(result, result.Bounds(), img, img.Bounds().Min, draw.Src)

	// Lines fall on absolute multiples of the step so adjacent regions line up
	originX, originY := p.Region.X, p.Region.Y
	firstX := (stepX - originX%stepX) % stepX
	firstY := (stepY - originY%stepY) % stepY

	for x := firstX; x < width; x += stepX {
		for y := 0; y < height; y++ {
			result.Set(x, y, gridColor)
		}
	}
	for y := firstY; y < height; y += stepY {
		for x := 0; x < width; x++ {
			result.Set(x, y, gridColor)
		}
	}

	if showCoordinates {
		labelColor := color.RGBA{255, 255, 255, 255}
		bgColor := color.RGBA{0, 0, 0, 180}

		for y := firstY; y < height; y += stepY {
			for x := firstX; x < width; x += stepX {
				label := fmt.Sprintf("%d,%d",
					int(math.Round(float64(originX+x)*tres)),
					int(math.Round(float64(originY+y)*lres)))
				drawLabel(result, x+2, y+2, label, labelColor, bgColor)
			}
		}
	}

	b64, err := encodePNG(result)
	if err != nil {
		return nil, err
	}

	return &GridOverlayResult{
		Width:          width,
		Height:         height,
		ImageBase64:    b64,
		MimeType:       "image/png",
		SpacingMM:      spacingMM,
		SpacingXPixels: stepX,
		SpacingYPixels: stepY,
	}, nil
}

// parseGridColor parses "#RRGGBB" or "#RRGGBBAA".
func parseGridColor(hex string) (color.NRGBA, error) {
	var alpha uint8 = 255
	switch len(hex) {
	case 7:
	case 9:
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in %q: %w", hex, err)
		}
		alpha = uint8(a)
		hex = hex[:7]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", hex)
	}

	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// drawLabel draws text in a 3x5 digit font on a filled background. Runes
// without a glyph leave a gap.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	// Simple 3x5 pixel font for digits and comma
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	// Draw background
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.Set(px, py, bg)
			}
		}
	}

	// Draw text
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
