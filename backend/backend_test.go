package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/texreg"
	"github.com/gogpu/texreg/dispatch"
)

func dispatchQueue(t *testing.T) *dispatch.Queue {
	t.Helper()
	q := dispatch.New(16)
	t.Cleanup(q.Close)
	return q
}

// fakeEngine is a minimal texreg.Engine for registry tests.
type fakeEngine struct {
	attached bool
}

func (e *fakeEngine) RegisterTexture(id uint64, surface *texreg.Surface) {}
func (e *fakeEngine) MarkTextureFrameAvailable(id uint64)                {}
func (e *fakeEngine) UnregisterTexture(id uint64)                       {}
func (e *fakeEngine) IsAttached() bool                                  { return e.attached }

func TestSoftwareAutoRegistered(t *testing.T) {
	// The software engine is registered via init().
	if !IsRegistered(EngineSoftware) {
		t.Error("software engine should be auto-registered")
	}
}

func TestNewSoftware(t *testing.T) {
	eng, err := New(EngineSoftware)
	if err != nil {
		t.Fatalf("New(software) error = %v", err)
	}
	if eng == nil {
		t.Fatal("New(software) returned nil")
	}
	if !eng.IsAttached() {
		t.Error("fresh software engine should be attached")
	}
	if _, ok := eng.(*texreg.SoftwareEngine); !ok {
		t.Errorf("New(software) = %T, want *texreg.SoftwareEngine", eng)
	}
}

func TestNewReturnsFreshInstances(t *testing.T) {
	a, err := New(EngineSoftware)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b, err := New(EngineSoftware)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a == b {
		t.Error("New() should construct a fresh engine per call")
	}
}

func TestNewUnregistered(t *testing.T) {
	eng, err := New("nonexistent")
	if eng != nil {
		t.Error("New(nonexistent) should return nil engine")
	}
	if !errors.Is(err, ErrEngineNotAvailable) {
		t.Errorf("New(nonexistent) error = %v, want ErrEngineNotAvailable", err)
	}
}

func TestAvailable(t *testing.T) {
	available := Available()
	if !slices.Contains(available, EngineSoftware) {
		t.Errorf("Available() = %v, should include %q", available, EngineSoftware)
	}
	if !slices.IsSorted(available) {
		t.Errorf("Available() = %v, want sorted order", available)
	}
}

func TestIsRegistered(t *testing.T) {
	if !IsRegistered(EngineSoftware) {
		t.Error("software should be registered")
	}
	if IsRegistered("nonexistent") {
		t.Error("nonexistent should not be registered")
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	Register("test-engine", func() (texreg.Engine, error) {
		return &fakeEngine{attached: true}, nil
	})

	if !IsRegistered("test-engine") {
		t.Error("test-engine should be registered")
	}

	eng, err := New("test-engine")
	if err != nil {
		t.Fatalf("New(test-engine) error = %v", err)
	}
	if _, ok := eng.(*fakeEngine); !ok {
		t.Errorf("New(test-engine) = %T, want *fakeEngine", eng)
	}

	Unregister("test-engine")

	if IsRegistered("test-engine") {
		t.Error("test-engine should be unregistered")
	}
}

func TestDefault(t *testing.T) {
	eng, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if eng == nil {
		t.Fatal("Default() returned nil")
	}
	// Software is the default when no GPU engine is registered.
	if _, ok := eng.(*texreg.SoftwareEngine); !ok {
		t.Logf("Default() returned %T (may vary based on registered engines)", eng)
	}
}

func TestDefaultPriority(t *testing.T) {
	// A working "gpu" factory should win over software.
	Register(EngineGPU, func() (texreg.Engine, error) {
		return &fakeEngine{attached: true}, nil
	})
	defer Unregister(EngineGPU)

	eng, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if _, ok := eng.(*fakeEngine); !ok {
		t.Errorf("Default() = %T, want the higher-priority fake gpu engine", eng)
	}
}

func TestDefaultSkipsFailingFactory(t *testing.T) {
	// A "gpu" factory that fails should fall through to software.
	Register(EngineGPU, func() (texreg.Engine, error) {
		return nil, errors.New("no device")
	})
	defer Unregister(EngineGPU)

	eng, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if _, ok := eng.(*texreg.SoftwareEngine); !ok {
		t.Errorf("Default() = %T, want *texreg.SoftwareEngine fallback", eng)
	}
}

func TestMustDefault(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	eng := MustDefault()
	if eng == nil {
		t.Error("MustDefault() returned nil")
	}
}

func TestDefaultEngineWorksWithRegistry(t *testing.T) {
	eng, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}

	q := dispatchQueue(t)
	reg := texreg.NewRegistry(eng, q)
	defer reg.Close()

	entry := reg.CreateTexture()
	if entry.ID() != 0 {
		t.Errorf("first texture id = %d, want 0", entry.ID())
	}
	entry.Release()
}
