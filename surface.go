package texreg

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/texreg/dispatch"
)

// ErrSurfaceReleased is returned by BeginFrame once the surface has
// been released.
var ErrSurfaceReleased = errors.New("texreg: surface released")

// FrameListener receives frame-availability callbacks from a Surface.
//
// Listeners are small owned objects stored alongside the surface; they
// should hold only the context they need (an engine reference and an
// id, typically), never the registry or the handle that owns them.
type FrameListener interface {
	OnFrameAvailable()
}

// frameDelivery pairs a listener with the queue its callbacks run on.
// Swapped atomically so Publish never blocks on listener changes.
type frameDelivery struct {
	listener FrameListener
	queue    *dispatch.Queue
}

// SurfaceStats counts mailbox traffic.
type SurfaceStats struct {
	// Published is the number of frames published.
	Published uint64

	// Acquired is the number of AcquireFrame calls that returned a frame.
	Acquired uint64

	// Dropped is the number of published frames overwritten before any
	// consumer acquired them.
	Dropped uint64
}

// Surface is a platform texture resource: a double-buffered frame
// mailbox detached from any rendering context, so producers can write
// pixel data without contending for the consumer's GPU context.
//
// One producer at a time writes via BeginFrame/Publish; any number of
// consumers read the latest frame via AcquireFrame. Publish replaces
// the previous frame whether or not it was ever acquired (mailbox
// semantics; only the newest frame matters).
//
// The frame listener is delivered asynchronously. A publish racing a
// Release can deliver one final stale notification after the surface is
// released; this mirrors the delivery races of the platform resources
// this type models, and listeners are expected to guard against it
// rather than rely on delivery stopping instantly.
type Surface struct {
	mu sync.Mutex

	// front is the latest published frame; back is the producer's
	// scratch buffer between BeginFrame and Publish.
	front *Pixmap
	back  *Pixmap

	// backCheckedOut is set while a producer holds the back buffer.
	backCheckedOut bool

	// frameAcquired marks the front frame as consumed at least once,
	// for drop accounting.
	frameAcquired bool

	seq      atomic.Uint64
	released atomic.Bool

	delivery atomic.Pointer[frameDelivery]

	published atomic.Uint64
	acquired  atomic.Uint64
	dropped   atomic.Uint64

	pool *PixmapPool
}

// NewSurface creates an empty surface. Buffers are allocated lazily
// from the package pixmap pool on first BeginFrame.
func NewSurface() *Surface {
	return &Surface{pool: defaultPixmapPool}
}

// BeginFrame returns the back buffer resized to the given dimensions.
// The caller writes pixel data into it and then calls Publish. Only one
// producer may be between BeginFrame and Publish at a time.
//
// Returns ErrSurfaceReleased once the surface has been released.
func (s *Surface) BeginFrame(width, height int) (*Pixmap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released.Load() {
		return nil, ErrSurfaceReleased
	}

	if s.back == nil {
		s.back = s.pool.Get(width, height)
	} else {
		s.back.Resize(width, height)
	}
	s.backCheckedOut = true
	return s.back, nil
}

// Publish swaps the frame written since BeginFrame to the front and
// notifies the frame listener. It returns the new frame sequence
// number, starting at 1 for the first published frame.
//
// Publishing with no frame begun, or after Release, is a no-op that
// returns the current sequence number.
func (s *Surface) Publish() uint64 {
	s.mu.Lock()

	if s.released.Load() || !s.backCheckedOut {
		seq := s.seq.Load()
		s.mu.Unlock()
		return seq
	}

	if s.front != nil && !s.frameAcquired {
		s.dropped.Add(1)
	}
	s.front, s.back = s.back, s.front
	s.backCheckedOut = false
	s.frameAcquired = false
	seq := s.seq.Add(1)
	s.published.Add(1)

	s.mu.Unlock()

	// Deliver outside the lock. The delivery snapshot may be stale if a
	// concurrent Release just cleared it; that one extra notification
	// is the documented race and listeners suppress it themselves.
	if d := s.delivery.Load(); d != nil && d.listener != nil {
		if d.queue != nil {
			d.queue.Post(d.listener.OnFrameAvailable)
		} else {
			d.listener.OnFrameAvailable()
		}
	}

	return seq
}

// AcquireFrame copies the latest published frame into dst, resizing it
// as needed. It returns the frame's sequence number and whether a frame
// was available. Acquiring never blocks producers for longer than the
// copy.
func (s *Surface) AcquireFrame(dst *Pixmap) (uint64, bool) {
	if dst == nil {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.front == nil {
		return 0, false
	}

	dst.CopyFrom(s.front)
	s.frameAcquired = true
	s.acquired.Add(1)
	return s.seq.Load(), true
}

// Size returns the dimensions of the latest published frame, or (0, 0)
// if nothing has been published.
func (s *Surface) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.front == nil {
		return 0, 0
	}
	return s.front.Width(), s.front.Height()
}

// HasFrame reports whether a published frame is available.
func (s *Surface) HasFrame() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.front != nil
}

// Seq returns the sequence number of the latest published frame.
func (s *Surface) Seq() uint64 {
	return s.seq.Load()
}

// SetFrameListener installs the frame-availability listener. Each
// Publish schedules listener.OnFrameAvailable onto queue; with a nil
// queue the listener runs inline on the publishing goroutine.
//
// Passing a nil listener clears the installed one.
func (s *Surface) SetFrameListener(listener FrameListener, queue *dispatch.Queue) {
	if listener == nil {
		s.delivery.Store(nil)
		return
	}
	s.delivery.Store(&frameDelivery{listener: listener, queue: queue})
}

// ClearFrameListener removes the installed listener.
func (s *Surface) ClearFrameListener() {
	s.delivery.Store(nil)
}

// Release frees the surface's buffers and clears the listener.
// Idempotent. A producer still holding a BeginFrame buffer keeps a
// private allocation; its writes go nowhere.
func (s *Surface) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}

	s.delivery.Store(nil)

	s.mu.Lock()
	if s.front != nil {
		s.pool.Put(s.front)
		s.front = nil
	}
	// The back buffer returns to the pool only when no producer holds
	// it; otherwise the producer keeps the allocation and the pool
	// never sees it again.
	if s.back != nil && !s.backCheckedOut {
		s.pool.Put(s.back)
	}
	s.back = nil
	s.frameAcquired = false
	s.mu.Unlock()
}

// Released reports whether Release has been called.
func (s *Surface) Released() bool {
	return s.released.Load()
}

// Stats returns mailbox traffic counters.
func (s *Surface) Stats() SurfaceStats {
	return SurfaceStats{
		Published: s.published.Load(),
		Acquired:  s.acquired.Load(),
		Dropped:   s.dropped.Load(),
	}
}
