package texreg

import (
	"log/slog"
	"runtime"
	"slices"
	"sync/atomic"

	"github.com/gogpu/texreg/dispatch"
	"github.com/gogpu/texreg/internal/shardtable"
)

// liveRecord tracks one unreleased handle. Records hold the shared
// released flag and the surface, never the entry itself, so the table
// cannot keep a dropped handle alive past its finalizer.
type liveRecord struct {
	released *atomic.Bool
	surface  *Surface
}

// Registry allocates texture ids and manages handle lifecycles against
// one engine.
//
// Ids are assigned from an atomic counter starting at 0 and are unique
// for the registry's lifetime. The engine mapping from id to resource
// lives on the engine side; the registry's own table exists to answer
// "which ids are still live" and to reclaim them at Close.
//
// Thread safety: Registry is safe for concurrent use from any number of
// producer goroutines.
type Registry struct {
	engine Engine
	queue  *dispatch.Queue
	opts   options

	// nextID is the source of id uniqueness.
	nextID atomic.Uint64

	live   *shardtable.Table[uint64, liveRecord]
	closed atomic.Bool
}

// NewRegistry creates a registry bound to an engine and the dispatch
// queue that owns the engine's single-threaded state. Both are
// mandatory; passing nil is a programming error and panics.
//
// The queue is caller-owned: the registry schedules cleanup work onto
// it but never closes it.
func NewRegistry(engine Engine, queue *dispatch.Queue, opts ...Option) *Registry {
	if engine == nil {
		panic("texreg: NewRegistry called with nil engine")
	}
	if queue == nil {
		panic("texreg: NewRegistry called with nil queue")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		engine: engine,
		queue:  queue,
		opts:   o,
		live:   shardtable.New[uint64, liveRecord](shardtable.Uint64Hasher),
	}

	propagateLogger(engine)
	return r
}

// CreateTexture allocates the next texture id, binds it to a fresh
// Surface, registers the pair with the engine, and returns the handle.
//
// Registration happens synchronously before the handle is returned, so
// the engine has seen the id before any producer can publish a frame on
// it. Surface construction cannot fail; there is no error path.
func (r *Registry) CreateTexture() *TextureEntry {
	id := r.nextID.Add(1) - 1
	surface := NewSurface()
	released := new(atomic.Bool)

	entry := &TextureEntry{
		id:       id,
		surface:  surface,
		released: released,
		reg:      r,
	}

	r.engine.RegisterTexture(id, surface)

	// The listener goes in only after registration: nothing may forward
	// a frame signal for an id the engine has not seen.
	surface.SetFrameListener(&entryFrameListener{
		engine:   r.engine,
		id:       id,
		released: released,
	}, r.queue)

	r.live.Store(id, liveRecord{released: released, surface: surface})
	runtime.SetFinalizer(entry, (*TextureEntry).finalize)

	r.logger().Debug("texture created", "id", id)
	return entry
}

// releaseEntry performs the explicit-release path. The caller has
// already won the released CAS.
func (r *Registry) releaseEntry(id uint64, s *Surface) {
	s.Release()
	r.live.Delete(id)
	r.engine.UnregisterTexture(id)
	r.logger().Debug("texture released", "id", id)
}

// finalizeEntry performs the safety-net path. The caller has already
// won the released CAS. The engine unregister is scheduled onto the
// dispatch queue, never executed on the finalizer goroutine, and the
// attachment check happens on the queue.
func (r *Registry) finalizeEntry(id uint64, s *Surface) {
	if r.opts.leakWarnings {
		r.logger().Warn("texture handle leaked; scheduling engine unregister", "id", id)
	} else {
		r.logger().Debug("finalizing unreleased texture", "id", id)
	}

	s.Release()
	r.live.Delete(id)

	task := &unregisterTask{engine: r.engine, id: id}
	if !r.queue.Post(task.Run) {
		r.logger().Debug("dispatch queue closed; dropping unregister", "id", id)
	}
}

// Live returns the ids of all handles not yet released, sorted.
func (r *Registry) Live() []uint64 {
	ids := r.live.Keys()
	slices.Sort(ids)
	return ids
}

// LiveCount returns the number of handles not yet released.
func (r *Registry) LiveCount() int {
	return r.live.Len()
}

// ReleaseAll releases every live handle. Handles already being released
// concurrently are skipped; each id is still unregistered exactly once.
func (r *Registry) ReleaseAll() {
	type victim struct {
		id  uint64
		rec liveRecord
	}

	var victims []victim
	r.live.Range(func(id uint64, rec liveRecord) bool {
		victims = append(victims, victim{id: id, rec: rec})
		return true
	})

	for _, v := range victims {
		if !v.rec.released.CompareAndSwap(false, true) {
			continue
		}
		r.releaseEntry(v.id, v.rec.surface)
	}
}

// Close releases all live handles. With leak warnings enabled it first
// reports every id the caller never released explicitly. Close is
// idempotent and does not close the caller-owned queue or engine.
func (r *Registry) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}

	if r.opts.leakWarnings {
		if ids := r.Live(); len(ids) > 0 {
			r.logger().Warn("registry closing with unreleased textures", "count", len(ids), "ids", ids)
		}
	}
	r.ReleaseAll()
}

// Engine returns the engine this registry forwards to.
func (r *Registry) Engine() Engine {
	return r.engine
}

// Queue returns the dispatch queue passed at construction.
func (r *Registry) Queue() *dispatch.Queue {
	return r.queue
}

// logger returns the package logger, tagged with the registry label
// when one was configured.
func (r *Registry) logger() *slog.Logger {
	l := Logger()
	if r.opts.label != "" {
		return l.With("registry", r.opts.label)
	}
	return l
}
