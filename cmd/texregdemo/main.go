// Command texregdemo exercises the texture registry end to end: it
// creates a set of textures, runs one producer per texture publishing
// moving color patterns, composites every frame with the selected
// engine, and writes the final target as a PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/texreg"
	"github.com/gogpu/texreg/backend"
	"github.com/gogpu/texreg/dispatch"
	_ "github.com/gogpu/texreg/gpu" // make the hardware engine selectable
)

func main() {
	var (
		width       = flag.Int("width", 640, "target width")
		height      = flag.Int("height", 480, "target height")
		textures    = flag.Int("textures", 4, "number of producer textures")
		frames      = flag.Int("frames", 60, "frames to publish per texture")
		backendName = flag.String("backend", "", "engine backend (empty selects the best available)")
		output      = flag.String("o", "texregdemo.png", "output file")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		texreg.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	if *textures < 1 {
		log.Fatal("need at least one texture")
	}

	engine, chosen, err := newEngine(*backendName)
	if err != nil {
		log.Fatalf("No engine available (registered: %v): %v", backend.Available(), err)
	}

	queue := dispatch.New(64)
	defer queue.Close()

	renderer := texreg.NewRenderer(engine, queue)
	defer renderer.Close()

	renderer.SetViewportMetrics(texreg.ViewportMetrics{
		Width:            *width,
		Height:           *height,
		DevicePixelRatio: 1,
	})

	// Lay the textures out on a grid.
	cols := int(math.Ceil(math.Sqrt(float64(*textures))))
	rows := (*textures + cols - 1) / cols
	tileW, tileH := *width/cols, *height/rows

	entries := make([]*texreg.TextureEntry, *textures)
	for i := range entries {
		entries[i] = renderer.CreateTexture()
	}

	if sw, ok := engine.(*texreg.SoftwareEngine); ok {
		sw.SetBackground(color.RGBA{R: 18, G: 18, B: 24, A: 255})
		for i, e := range entries {
			x, y := (i%cols)*tileW, (i/cols)*tileH
			sw.SetPlacement(e.ID(), image.Rect(x, y, x+tileW, y+tileH))
		}
	}

	for f := 0; f < *frames; f++ {
		var g errgroup.Group
		for i, e := range entries {
			g.Go(func() error {
				return publishPattern(e, i, f, tileW, tileH)
			})
		}
		if err := g.Wait(); err != nil {
			log.Fatalf("Producer failed: %v", err)
		}

		// Deliver the frame signals, then composite.
		queue.Flush()
		if err := renderer.Flush(); err != nil {
			log.Fatalf("Composite failed: %v", err)
		}
	}

	img, err := renderer.Snapshot()
	switch {
	case errors.Is(err, texreg.ErrNoSnapshot):
		log.Printf("Backend %q does not support readback; skipping %s", chosen, *output)
	case err != nil:
		log.Fatalf("Snapshot failed: %v", err)
	default:
		if err := savePNG(*output, img); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("Demo saved to %s (%dx%d, %d textures, %d frames, backend %q)",
			*output, *width, *height, *textures, *frames, chosen)
	}
}

// newEngine builds the requested backend, or the best available one
// when name is empty.
func newEngine(name string) (texreg.Engine, string, error) {
	if name == "" || name == "auto" {
		eng, err := backend.Default()
		return eng, "auto", err
	}
	eng, err := backend.New(name)
	return eng, name, err
}

// publishPattern renders one frame of a moving color wave, stamps the
// texture's id on it, and publishes it.
func publishPattern(e *texreg.TextureEntry, producer, frame, w, h int) error {
	pm, err := e.Surface().BeginFrame(w, h)
	if err != nil {
		return err
	}

	phase := float64(frame)*0.15 + float64(producer)*1.7
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := float64(x+y) / 24
			pm.SetRGBA(x, y, color.RGBA{
				R: wave(d + phase),
				G: wave(d*1.3 + phase + 2),
				B: wave(d*0.7 + phase + 4),
				A: 255,
			})
		}
	}
	stampLabel(pm, fmt.Sprintf("tex %d", e.ID()))

	e.Surface().Publish()
	return nil
}

// wave maps a phase angle onto a color channel.
func wave(t float64) uint8 {
	return uint8((math.Sin(t) + 1) * 127.5)
}

// stampLabel draws text into the pixmap's top-left corner.
func stampLabel(pm *texreg.Pixmap, label string) {
	d := &font.Drawer{
		Dst:  pm.RGBAView(),
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 14),
	}
	d.DrawString(label)
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
