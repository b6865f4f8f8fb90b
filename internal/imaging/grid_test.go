package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/psi-tools-mcp/internal/psi"
)

func TestGridOverlay(t *testing.T) {
	p := newPlane2D(100, 100, solid2D(128))

	result, err := GridOverlay(p, RenderOptions{}, 25, false, "#FF0000")
	if err != nil {
		t.Fatalf("GridOverlay failed: %v", err)
	}
	if result.Width != 100 || result.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 100x100", result.Width, result.Height)
	}
	if result.SpacingXPixels != 25 || result.SpacingYPixels != 25 {
		t.Errorf("spacing: got %dx%d, want 25x25", result.SpacingXPixels, result.SpacingYPixels)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}
}

func TestGridOverlay_GridLines(t *testing.T) {
	p := newPlane2D(100, 100, solid2D(0))

	result, err := GridOverlay(p, RenderOptions{}, 25, false, "#FF0000FF")
	if err != nil {
		t.Fatalf("GridOverlay failed: %v", err)
	}
	img := decodePNG(t, result.ImageBase64)

	if r, g, b := rgb8(img, 25, 50); r != 255 || g != 0 || b != 0 {
		t.Errorf("grid line color at (25,50): got (%d,%d,%d), want (255,0,0)", r, g, b)
	}
	if r, g, b := rgb8(img, 15, 15); r != 0 || g != 0 || b != 0 {
		t.Errorf("background at (15,15): got (%d,%d,%d), want (0,0,0)", r, g, b)
	}
}

func TestGridOverlay_AnisotropicResolution(t *testing.T) {
	p := newPlane2D(60, 60, solid2D(0))
	p.Layout.TransverseResolution = 1
	p.Layout.LongitudinalResolution = 5

	result, err := GridOverlay(p, RenderOptions{}, 50, false, "#00FF00")
	if err != nil {
		t.Fatalf("GridOverlay failed: %v", err)
	}
	if result.SpacingXPixels != 50 || result.SpacingYPixels != 10 {
		t.Errorf("spacing: got %dx%d, want 50x10", result.SpacingXPixels, result.SpacingYPixels)
	}
}

func TestGridOverlay_AlignsToImageOrigin(t *testing.T) {
	p := newPlane2D(30, 30, solid2D(0))
	p.Region = psi.Region{X: 15, Y: 0, Width: 30, Height: 30}

	result, err := GridOverlay(p, RenderOptions{}, 20, false, "#FF0000")
	if err != nil {
		t.Fatalf("GridOverlay failed: %v", err)
	}
	img := decodePNG(t, result.ImageBase64)

	// Image x=20 is the first line, 5 samples into a region starting at 15.
	if r, _, _ := rgb8(img, 5, 3); r != 255 {
		t.Errorf("expected a grid line at region column 5, got r=%d", r)
	}
	if r, _, _ := rgb8(img, 0, 3); r != 0 {
		t.Errorf("region column 0 should be background, got r=%d", r)
	}
}

func TestGridOverlay_WithCoordinates(t *testing.T) {
	p := newPlane2D(100, 100, solid2D(255))

	result, err := GridOverlay(p, RenderOptions{}, 50, true, "#0000FF")
	if err != nil {
		t.Fatalf("GridOverlay with coordinates failed: %v", err)
	}
	img := decodePNG(t, result.ImageBase64)

	// Label background sits just past the crossing.
	if r, g, b := rgb8(img, 51, 51); r == 255 && g == 255 && b == 255 {
		t.Error("expected a label at (51,51)")
	}
}

func TestGridOverlay_Invalid(t *testing.T) {
	p := newPlane2D(10, 10, solid2D(0))
	if _, err := GridOverlay(p, RenderOptions{}, 0, false, "#FF0000"); err == nil {
		t.Error("expected error for zero spacing")
	}

	p.Layout.TransverseResolution = 0
	if _, err := GridOverlay(p, RenderOptions{}, 10, false, "#FF0000"); err == nil {
		t.Error("expected error for a missing resolution")
	}
}

func TestGridOverlay_InvalidColorFallsBack(t *testing.T) {
	p := newPlane2D(50, 50, solid2D(0))

	result, err := GridOverlay(p, RenderOptions{}, 10, false, "invalid")
	if err != nil {
		t.Fatalf("GridOverlay should fall back to the default colour: %v", err)
	}
	img := decodePNG(t, result.ImageBase64)
	if r, _, _ := rgb8(img, 10, 5); r == 0 {
		t.Error("expected the default red grid line at x=10")
	}
}

func TestParseGridColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.NRGBA
		wantErr bool
	}{
		{"#FF0000", color.NRGBA{255, 0, 0, 255}, false},
		{"#00ff00", color.NRGBA{0, 255, 0, 255}, false},
		{"#0000FF80", color.NRGBA{0, 0, 255, 128}, false},
		{"FF0000", color.NRGBA{}, true},
		{"#FFF", color.NRGBA{}, true},
		{"#GGGGGG", color.NRGBA{}, true},
		{"#FF0000ZZ", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		got, err := parseGridColor(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseGridColor(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseGridColor(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseGridColor(%q): got %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDrawLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 50, 20))
	fg := color.RGBA{255, 255, 255, 255}
	bg := color.RGBA{0, 0, 0, 255}

	drawLabel(img, 2, 2, "10,5", fg, bg)

	// '1' has its top-middle pixel set.
	if got := img.RGBAAt(3, 2); got != fg {
		t.Errorf("glyph pixel: got %v, want %v", got, fg)
	}
	if got := img.RGBAAt(1, 1); got != bg {
		t.Errorf("background pixel: got %v, want %v", got, bg)
	}

	// Labels near the edge are clipped, not a panic.
	drawLabel(img, 48, 18, "999", fg, bg)
}
