package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

// RenderOptions controls how a plane is turned into a viewable image.
type RenderOptions struct {
	// Scale resizes the output; 0 and 1 keep native size.
	Scale float64
	// Contrast is a change in [-1, 1] applied to the rendered image.
	Contrast float64
	// Gamma is applied when positive and not 1.
	Gamma float64
	// Colormap holds hex colour stops used for 3D planes. Fewer than two
	// stops renders 3D planes as stretched grayscale.
	Colormap []string
	// FlipVertical puts the first scanned row at the bottom.
	FlipVertical bool
}

// RenderResult contains the rendered plane
type RenderResult struct {
	Region      psi.Region `json:"region"`
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	ImageBase64 string     `json:"image_base64"`
	MimeType    string     `json:"mime_type"`
}

// Render converts a plane to a PNG.
func Render(p *Plane, opts RenderOptions) (*RenderResult, error) {
	img, err := RenderImage(p, opts)
	if err != nil {
		return nil, err
	}
	b64, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	return &RenderResult{
		Region:      p.Region,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: b64,
		MimeType:    "image/png",
	}, nil
}

// RenderImage applies opts to a plane and returns the image without
// encoding it.
func RenderImage(p *Plane, opts RenderOptions) (image.Image, error) {
	var img image.Image
	switch {
	case p.Layout.Image == psi.Image3D && len(opts.Colormap) >= 2:
		cm, err := ParseColormap(opts.Colormap)
		if err != nil {
			return nil, err
		}
		img = colorize(p, cm)
	case p.Layout.BytesPerSample == 2:
		img = stretch(p)
	default:
		var err error
		if img, err = p.Image(); err != nil {
			return nil, err
		}
	}

	if opts.Contrast != 0 {
		img = adjust.Contrast(img, opts.Contrast)
	}
	if opts.Gamma > 0 && opts.Gamma != 1 {
		img = adjust.Gamma(img, opts.Gamma)
	}
	if opts.FlipVertical {
		img = imaging.FlipV(img)
	}
	if opts.Scale > 0 && opts.Scale != 1 {
		w := max(1, int(float64(img.Bounds().Dx())*opts.Scale))
		h := max(1, int(float64(img.Bounds().Dy())*opts.Scale))
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	return img, nil
}

// stretch maps a 16-bit plane onto 8-bit gray by its own range.
func stretch(p *Plane) *image.Gray {
	rows := p.Normalized()
	img := image.NewGray(image.Rect(p.Region.X, p.Region.Y, p.Region.X+p.Region.Width, p.Region.Y+p.Region.Height))
	for y, row := range rows {
		for x, v := range row {
			img.SetGray(p.Region.X+x, p.Region.Y+y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return img
}

// Colormap is an ordered list of colour stops blended in Lab space.
type Colormap []colorful.Color

// ParseColormap parses "#RRGGBB" stops.
func ParseColormap(stops []string) (Colormap, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("colormap needs at least two stops, got %d", len(stops))
	}
	cm := make(Colormap, len(stops))
	for i, s := range stops {
		c, err := colorful.Hex(s)
		if err != nil {
			return nil, fmt.Errorf("colormap stop %d: %w", i, err)
		}
		cm[i] = c
	}
	return cm, nil
}

// At returns the colour for t in [0,1]; values outside are clamped.
func (m Colormap) At(t float64) colorful.Color {
	t = max(0, min(1, t))
	seg := t * float64(len(m)-1)
	i := min(int(seg), len(m)-2)
	return m[i].BlendLab(m[i+1], seg-float64(i)).Clamped()
}

func colorize(p *Plane, cm Colormap) *image.RGBA {
	rows := p.Normalized()
	img := image.NewRGBA(image.Rect(p.Region.X, p.Region.Y, p.Region.X+p.Region.Width, p.Region.Y+p.Region.Height))
	for y, row := range rows {
		for x, v := range row {
			r, g, b := cm.At(v).RGB255()
			img.SetRGBA(p.Region.X+x, p.Region.Y+y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// QuadrantRegion resolves a named part of a w x l image to a region.
func QuadrantRegion(w, l int, name string) (psi.Region, error) {
	midX, midY := w/2, l/2

	var x1, y1, x2, y2 int
	switch name {
	case "full":
		x1, y1, x2, y2 = 0, 0, w, l
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, w, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, l
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, w, l
	case "top-half":
		x1, y1, x2, y2 = 0, 0, w, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, w, l
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, l
	case "right-half":
		x1, y1, x2, y2 = midX, 0, w, l
	case "center":
		// Center 50% of the image
		qW, qH := w/4, l/4
		x1, y1, x2, y2 = qW, qH, w-qW, l-qH
	default:
		return psi.Region{}, fmt.Errorf("unknown region: %s", name)
	}

	r := psi.Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
	if r.Empty() {
		return psi.Region{}, fmt.Errorf("region %s of a %dx%d image is empty", name, w, l)
	}
	return r, nil
}
