package imaging

import (
	"testing"
)

func TestRender(t *testing.T) {
	p := newPlane2D(40, 30, func(x, y int) uint8 { return uint8(x * 6) })

	result, err := Render(p, RenderOptions{})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if result.Width != 40 || result.Height != 30 {
		t.Errorf("dimensions: got %dx%d, want 40x30", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	img := decodePNG(t, result.ImageBase64)
	if r, _, _ := rgb8(img, 10, 5); r != 60 {
		t.Errorf("pixel (10,5): got %d, want 60", r)
	}
}

func TestRender_Scale(t *testing.T) {
	p := newPlane2D(50, 20, solid2D(128))

	tests := []struct {
		scale float64
		wantW int
		wantH int
	}{
		{1, 50, 20},
		{2, 100, 40},
		{0.5, 25, 10},
		{0.001, 1, 1},
	}
	for _, tt := range tests {
		result, err := Render(p, RenderOptions{Scale: tt.scale})
		if err != nil {
			t.Fatalf("Render scale %v failed: %v", tt.scale, err)
		}
		if result.Width != tt.wantW || result.Height != tt.wantH {
			t.Errorf("scale %v: got %dx%d, want %dx%d", tt.scale, result.Width, result.Height, tt.wantW, tt.wantH)
		}
	}
}

func TestRender_FlipVertical(t *testing.T) {
	p := newPlane2D(4, 4, func(_, y int) uint8 { return uint8(y * 50) })

	result, err := Render(p, RenderOptions{FlipVertical: true})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	img := decodePNG(t, result.ImageBase64)
	if r, _, _ := rgb8(img, 0, 0); r != 150 {
		t.Errorf("top row after flip: got %d, want 150", r)
	}
}

func TestRender_ContrastAndGamma(t *testing.T) {
	p := newPlane2D(8, 8, func(x, _ int) uint8 { return uint8(100 + x*5) })

	plain, err := RenderImage(p, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	boosted, err := RenderImage(p, RenderOptions{Contrast: 0.8})
	if err != nil {
		t.Fatal(err)
	}
	lo0, _, _ := rgb8(plain, plain.Bounds().Min.X, plain.Bounds().Min.Y)
	hi0, _, _ := rgb8(plain, plain.Bounds().Max.X-1, plain.Bounds().Min.Y)
	lo1, _, _ := rgb8(boosted, boosted.Bounds().Min.X, boosted.Bounds().Min.Y)
	hi1, _, _ := rgb8(boosted, boosted.Bounds().Max.X-1, boosted.Bounds().Min.Y)
	if int(hi1)-int(lo1) <= int(hi0)-int(lo0) {
		t.Errorf("contrast should widen the spread: %d..%d became %d..%d", lo0, hi0, lo1, hi1)
	}

	bright, err := RenderImage(p, RenderOptions{Gamma: 2})
	if err != nil {
		t.Fatal(err)
	}
	g, _, _ := rgb8(bright, bright.Bounds().Min.X, bright.Bounds().Min.Y)
	if g <= lo0 {
		t.Errorf("gamma 2 should brighten mid tones: %d became %d", lo0, g)
	}
}

func TestRender_3DColormap(t *testing.T) {
	p := newPlane3D(3, 1, func(x, _ int) uint16 { return uint16(1000 + 500*x) })

	result, err := Render(p, RenderOptions{Colormap: []string{"#000000", "#FF0000"}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	img := decodePNG(t, result.ImageBase64)
	if r, g, b := rgb8(img, 0, 0); r != 0 || g != 0 || b != 0 {
		t.Errorf("lowest sample: got (%d,%d,%d), want black", r, g, b)
	}
	if r, g, b := rgb8(img, 2, 0); r != 255 || g != 0 || b != 0 {
		t.Errorf("highest sample: got (%d,%d,%d), want red", r, g, b)
	}
}

func TestRender_3DGrayscaleStretch(t *testing.T) {
	p := newPlane3D(2, 1, func(x, _ int) uint16 { return uint16(30000 + x) })

	img, err := RenderImage(p, RenderOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if r, _, _ := rgb8(img, 0, 0); r != 0 {
		t.Errorf("min sample: got %d, want 0", r)
	}
	if r, _, _ := rgb8(img, 1, 0); r != 255 {
		t.Errorf("max sample: got %d, want 255", r)
	}
}

func TestParseColormap(t *testing.T) {
	if _, err := ParseColormap([]string{"#000000"}); err == nil {
		t.Error("expected error for a single stop")
	}
	if _, err := ParseColormap([]string{"#000000", "red"}); err == nil {
		t.Error("expected error for a non-hex stop")
	}

	cm, err := ParseColormap([]string{"#000000", "#ffffff", "#ff0000"})
	if err != nil {
		t.Fatal(err)
	}
	if r, g, b := cm.At(0.5).RGB255(); r != 255 || g != 255 || b != 255 {
		t.Errorf("At(0.5): got (%d,%d,%d), want white", r, g, b)
	}
	if r, _, _ := cm.At(7).RGB255(); r != 255 {
		t.Errorf("At(7) should clamp to the last stop, got r=%d", r)
	}
}

func TestQuadrantRegion(t *testing.T) {
	tests := []struct {
		name       string
		x, y, w, h int
	}{
		{"full", 0, 0, 100, 80},
		{"top-left", 0, 0, 50, 40},
		{"bottom-right", 50, 40, 50, 40},
		{"left-half", 0, 0, 50, 80},
		{"center", 25, 20, 50, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := QuadrantRegion(100, 80, tt.name)
			if err != nil {
				t.Fatalf("QuadrantRegion failed: %v", err)
			}
			if r.X != tt.x || r.Y != tt.y || r.Width != tt.w || r.Height != tt.h {
				t.Errorf("got %s, want (%d,%d)+%dx%d", r, tt.x, tt.y, tt.w, tt.h)
			}
		})
	}

	if _, err := QuadrantRegion(100, 80, "middle-ish"); err == nil {
		t.Error("expected error for unknown region")
	}
	if _, err := QuadrantRegion(1, 1, "top-left"); err == nil {
		t.Error("expected error for an empty quadrant")
	}
}
