package backend

import (
	"errors"

	"github.com/gogpu/texreg"
)

// Common backend errors.
var (
	// ErrEngineNotAvailable is returned when a requested engine is not
	// registered or no registered engine could be constructed.
	ErrEngineNotAvailable = errors.New("backend: engine not available")
)

// EngineFactory constructs a new engine instance. Factories may fail:
// GPU engines probe the hardware during construction and report the
// reason no device could be opened.
type EngineFactory func() (texreg.Engine, error)
