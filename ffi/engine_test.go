//go:build !ios && !android && (amd64 || arm64)

package ffi

import (
	"errors"
	"testing"

	"github.com/gogpu/texreg/backend"
)

func TestNewEngineBeforeLoad(t *testing.T) {
	if IsLoaded() {
		t.Skip("a native engine library is loaded in this environment")
	}
	if _, err := NewEngine(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("NewEngine error = %v, want %v", err, ErrNotLoaded)
	}
}

func TestLoadBadPath(t *testing.T) {
	if IsLoaded() {
		t.Skip("a native engine library is loaded in this environment")
	}
	if err := Load("/nonexistent/libtexreg_engine.so"); err == nil {
		t.Fatal("expected Load to fail for a missing file")
	}
	if IsLoaded() {
		t.Error("failed Load must not mark the library loaded")
	}
}

func TestLoadLibraryNotFound(t *testing.T) {
	if IsLoaded() {
		t.Skip("a native engine library is loaded in this environment")
	}
	err := LoadLibrary("texreg_engine_does_not_exist", 3)
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Errorf("LoadLibrary error = %v, want %v", err, ErrLibraryNotFound)
	}
}

func TestVersionBeforeLoad(t *testing.T) {
	if IsLoaded() {
		t.Skip("a native engine library is loaded in this environment")
	}
	if v := Version(); v != 0 {
		t.Errorf("Version before load = %d, want 0", v)
	}
}

func TestBackendRegistration(t *testing.T) {
	if !backend.IsRegistered(EngineNative) {
		t.Fatal("expected the native engine to self-register")
	}
	if IsLoaded() {
		t.Skip("a native engine library is loaded in this environment")
	}
	if _, err := backend.New(EngineNative); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("backend.New(native) error = %v, want %v", err, ErrNotLoaded)
	}
}
