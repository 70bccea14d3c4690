package texreg

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestPixmapSetRGBA(t *testing.T) {
	pm := NewPixmap(10, 10)

	pm.SetRGBA(5, 5, color.RGBA{R: 128, G: 64, B: 32, A: 255})

	// Verify raw data directly
	i := (5*10 + 5) * 4
	data := pm.Data()
	if data[i+0] != 128 || data[i+1] != 64 || data[i+2] != 32 || data[i+3] != 255 {
		t.Errorf("raw data mismatch: got (%d, %d, %d, %d), want (128, 64, 32, 255)",
			data[i+0], data[i+1], data[i+2], data[i+3])
	}

	// Verify via At() (returns premultiplied color.RGBA)
	r, g, b, a := pm.At(5, 5).RGBA()
	// color.RGBA returns values scaled to 0-65535
	if r != 128*257 || g != 64*257 || b != 32*257 || a != 255*257 {
		t.Errorf("At() mismatch: got (%d, %d, %d, %d), want (%d, %d, %d, %d)",
			r, g, b, a, 128*257, 64*257, 32*257, 255*257)
	}
}

func TestPixmapSetRGBA_OutOfBounds(t *testing.T) {
	pm := NewPixmap(10, 10)
	pm.Clear(color.RGBA{A: 255})

	// Save original data
	original := make([]uint8, len(pm.Data()))
	copy(original, pm.Data())

	red := color.RGBA{R: 255, A: 255}
	pm.SetRGBA(-1, 5, red)
	pm.SetRGBA(10, 5, red)
	pm.SetRGBA(5, -1, red)
	pm.SetRGBA(5, 10, red)

	for i, v := range pm.Data() {
		if v != original[i] {
			t.Fatalf("out-of-bounds SetRGBA modified data at %d", i)
		}
	}

	if got := pm.RGBAAt(-3, 200); got != (color.RGBA{}) {
		t.Errorf("RGBAAt out of bounds = %v, want zero color", got)
	}
}

func TestPixmapClear(t *testing.T) {
	pm := NewPixmap(4, 4)
	c := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	pm.Clear(c)

	for y := range 4 {
		for x := range 4 {
			if got := pm.RGBAAt(x, y); got != c {
				t.Fatalf("RGBAAt(%d, %d) = %v, want %v", x, y, got, c)
			}
		}
	}
}

func TestPixmapResizeReusesBuffer(t *testing.T) {
	pm := NewPixmap(8, 8)
	data := pm.Data()

	pm.Resize(4, 4)
	if pm.Width() != 4 || pm.Height() != 4 {
		t.Fatalf("size = %dx%d, want 4x4", pm.Width(), pm.Height())
	}
	if len(pm.Data()) != 4*4*4 {
		t.Errorf("data length = %d, want %d", len(pm.Data()), 4*4*4)
	}
	if &pm.Data()[0] != &data[0] {
		t.Error("shrinking Resize should reuse the backing array")
	}

	pm.Resize(16, 16)
	if len(pm.Data()) != 16*16*4 {
		t.Errorf("data length after grow = %d, want %d", len(pm.Data()), 16*16*4)
	}
}

func TestPixmapCopyFrom(t *testing.T) {
	src := NewPixmap(3, 2)
	src.SetRGBA(2, 1, color.RGBA{R: 9, G: 8, B: 7, A: 255})

	dst := NewPixmap(10, 10)
	dst.CopyFrom(src)

	if dst.Width() != 3 || dst.Height() != 2 {
		t.Fatalf("dst size = %dx%d, want 3x2", dst.Width(), dst.Height())
	}
	if got := dst.RGBAAt(2, 1); got != (color.RGBA{R: 9, G: 8, B: 7, A: 255}) {
		t.Errorf("RGBAAt(2, 1) = %v after CopyFrom", got)
	}

	// nil src is a no-op
	dst.CopyFrom(nil)
	if dst.Width() != 3 {
		t.Error("CopyFrom(nil) should not modify the pixmap")
	}
}

func TestPixmapRGBAView_SharesData(t *testing.T) {
	pm := NewPixmap(4, 4)
	view := pm.RGBAView()

	view.SetRGBA(1, 1, color.RGBA{R: 200, A: 255})

	if got := pm.RGBAAt(1, 1); got.R != 200 {
		t.Errorf("write through view not visible in pixmap: %v", got)
	}

	pm.SetRGBA(2, 2, color.RGBA{G: 100, A: 255})
	if got := view.RGBAAt(2, 2); got.G != 100 {
		t.Errorf("write through pixmap not visible in view: %v", got)
	}
}

func TestPixmapToImage_Copies(t *testing.T) {
	pm := NewPixmap(2, 2)
	img := pm.ToImage()

	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	if pm.RGBAAt(0, 0).R != 0 {
		t.Error("ToImage must copy, not alias, the pixel data")
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.SetRGBA(1, 2, color.RGBA{R: 50, G: 60, B: 70, A: 255})

	pm := FromImage(img)
	if pm.Width() != 3 || pm.Height() != 3 {
		t.Fatalf("size = %dx%d, want 3x3", pm.Width(), pm.Height())
	}
	if got := pm.RGBAAt(1, 2); got != (color.RGBA{R: 50, G: 60, B: 70, A: 255}) {
		t.Errorf("RGBAAt(1, 2) = %v", got)
	}
}

func TestFromImage_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 13, 13))
	img.SetRGBA(10, 10, color.RGBA{R: 42, A: 255})

	pm := FromImage(img)
	if got := pm.RGBAAt(0, 0); got.R != 42 {
		t.Errorf("RGBAAt(0, 0) = %v, want R=42 (bounds min must translate to origin)", got)
	}
}

func TestPixmapSavePNG(t *testing.T) {
	pm := NewPixmap(4, 4)
	pm.Clear(color.RGBA{R: 255, A: 255})

	path := filepath.Join(t.TempDir(), "out.png")
	if err := pm.SavePNG(path); err != nil {
		t.Fatalf("SavePNG() = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() = %v", err)
	}
	if info.Size() == 0 {
		t.Error("SavePNG wrote an empty file")
	}
}

func TestPixmapPool(t *testing.T) {
	pool := NewPixmapPool()

	pm := pool.Get(8, 8)
	if pm.Width() != 8 || pm.Height() != 8 {
		t.Fatalf("Get returned %dx%d, want 8x8", pm.Width(), pm.Height())
	}
	pool.Put(pm)

	// Put(nil) must not panic.
	pool.Put(nil)

	pm2 := pool.Get(2, 2)
	if pm2.Width() != 2 || pm2.Height() != 2 {
		t.Fatalf("Get returned %dx%d, want 2x2", pm2.Width(), pm2.Height())
	}
	pool.Put(pm2)
}

func BenchmarkPixmapCopyFrom(b *testing.B) {
	src := NewPixmap(640, 480)
	dst := NewPixmap(640, 480)
	b.ReportAllocs()
	for b.Loop() {
		dst.CopyFrom(src)
	}
}

func BenchmarkPixmapPoolGet(b *testing.B) {
	pool := NewPixmapPool()
	b.ReportAllocs()
	for b.Loop() {
		pm := pool.Get(640, 480)
		pool.Put(pm)
	}
}
