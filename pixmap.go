package texreg

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"sync"
)

// Pixmap represents a rectangular pixel buffer.
// Pixel data is stored in RGBA order, 4 bytes per pixel, with
// premultiplied alpha (the same layout as image.RGBA).
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// NewPixmap creates a new pixmap with the given dimensions.
func NewPixmap(width, height int) *Pixmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Stride returns the number of bytes per row.
func (p *Pixmap) Stride() int {
	return p.width * 4
}

// Data returns the raw pixel data (RGBA format).
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// Resize adjusts the pixmap dimensions, reusing the backing array when
// it is large enough. Pixel contents are undefined afterwards.
func (p *Pixmap) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	need := width * height * 4
	if cap(p.data) < need {
		p.data = make([]uint8, need)
	} else {
		p.data = p.data[:need]
	}
	p.width = width
	p.height = height
}

// SetRGBA sets the color of a single pixel.
// Out-of-bounds coordinates are ignored.
func (p *Pixmap) SetRGBA(x, y int, c color.RGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i+0] = c.R
	p.data[i+1] = c.G
	p.data[i+2] = c.B
	p.data[i+3] = c.A
}

// RGBAAt returns the color of a single pixel.
// Out-of-bounds coordinates return the zero color.
func (p *Pixmap) RGBAAt(x, y int) color.RGBA {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return color.RGBA{}
	}
	i := (y*p.width + x) * 4
	return color.RGBA{
		R: p.data[i+0],
		G: p.data[i+1],
		B: p.data[i+2],
		A: p.data[i+3],
	}
}

// Clear fills the entire pixmap with a color.
func (p *Pixmap) Clear(c color.RGBA) {
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = c.R
		p.data[i+1] = c.G
		p.data[i+2] = c.B
		p.data[i+3] = c.A
	}
}

// CopyFrom makes p an exact copy of src, resizing as needed.
func (p *Pixmap) CopyFrom(src *Pixmap) {
	if src == nil {
		return
	}
	p.Resize(src.width, src.height)
	copy(p.data, src.data)
}

// ToImage converts the pixmap to a freshly allocated image.RGBA.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// RGBAView returns an image.RGBA sharing the pixmap's backing array.
// Mutations through either alias are visible in both. Upload and
// scaling paths use this to avoid per-frame copies.
func (p *Pixmap) RGBAView() *image.RGBA {
	return &image.RGBA{
		Pix:    p.data,
		Stride: p.Stride(),
		Rect:   image.Rect(0, 0, p.width, p.height),
	}
}

// FromImage creates a pixmap from an image.
func FromImage(img image.Image) *Pixmap {
	bounds := img.Bounds()
	pm := NewPixmap(bounds.Dx(), bounds.Dy())
	draw.Draw(pm.RGBAView(), pm.Bounds(), img, bounds.Min, draw.Src)
	return pm
}

// SavePNG saves the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	return png.Encode(f, p.ToImage())
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	return p.RGBAAt(x, y)
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.RGBAModel
}

// PixmapPool manages a pool of reusable pixel buffers.
// Frame mailboxes and engine scratch buffers draw from a pool so that
// steady-state frame production allocates nothing.
type PixmapPool struct {
	pool sync.Pool
}

// NewPixmapPool creates a new pixmap pool.
func NewPixmapPool() *PixmapPool {
	return &PixmapPool{
		pool: sync.Pool{
			New: func() any {
				return NewPixmap(0, 0)
			},
		},
	}
}

// Get retrieves a pixmap from the pool, resized to the given dimensions.
// Pixel contents are undefined; callers overwrite every pixel or Clear.
func (p *PixmapPool) Get(width, height int) *Pixmap {
	pm := p.pool.Get().(*Pixmap)
	pm.Resize(width, height)
	return pm
}

// Put returns a pixmap to the pool for reuse.
func (p *PixmapPool) Put(pm *Pixmap) {
	if pm == nil {
		return
	}
	p.pool.Put(pm)
}

// defaultPixmapPool backs Surface frame buffers.
var defaultPixmapPool = NewPixmapPool()
