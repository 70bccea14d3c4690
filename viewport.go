package texreg

// UnsetMetric indicates a viewport setting that has not been provided.
const UnsetMetric = -1

// Insets describes distances from each edge of the viewport, in
// physical pixels.
type Insets struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// ViewportMetrics describes the output geometry an engine composites
// into: physical size, pixel density, and the obscured regions around
// the edges.
type ViewportMetrics struct {
	// DevicePixelRatio is the ratio of physical to logical pixels.
	DevicePixelRatio float64

	// Width and Height are the physical dimensions in pixels.
	Width  int
	Height int

	// Padding is the area obscured by system UI that content should
	// avoid but may draw under.
	Padding Insets

	// ViewInsets is the area fully obscured, typically by an on-screen
	// keyboard.
	ViewInsets Insets

	// GestureInsets is the area reserved for system gestures.
	GestureInsets Insets

	// TouchSlop is the distance in physical pixels a touch may wander
	// before it stops counting as a tap. UnsetMetric when unknown.
	TouchSlop int
}

// DefaultViewportMetrics returns metrics with a 1.0 pixel ratio, zero
// size, and an unset touch slop. The zero size fails Valid: hosts often
// report the density before the dimensions, and such partial updates
// are ignored until the size arrives.
func DefaultViewportMetrics() ViewportMetrics {
	return ViewportMetrics{
		DevicePixelRatio: 1.0,
		TouchSlop:        UnsetMetric,
	}
}

// Valid reports whether the metrics describe a usable viewport:
// width, height, and device pixel ratio all positive.
func (m ViewportMetrics) Valid() bool {
	return m.Width > 0 && m.Height > 0 && m.DevicePixelRatio > 0
}
