//go:build !ios && !android && (amd64 || arm64)

package ffi

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// LibraryPrefix and LibraryExtension are the shared-library naming
// parts for this platform.
var (
	LibraryPrefix    string
	LibraryExtension string
)

func init() {
	switch runtime.GOOS {
	case "darwin":
		LibraryPrefix = "lib"
		LibraryExtension = ".dylib"
	case "windows":
		LibraryPrefix = ""
		LibraryExtension = ".dll"
	default: // linux, freebsd
		LibraryPrefix = "lib"
		LibraryExtension = ".so"
	}
}

// FormatLibraryName returns the platform-specific filename for a shared
// library. version 0 yields the unversioned name.
//
//	Linux:   FormatLibraryName("texreg_engine", 1) -> "libtexreg_engine.so.1"
//	macOS:   FormatLibraryName("texreg_engine", 1) -> "libtexreg_engine.1.dylib"
//	Windows: FormatLibraryName("texreg_engine", 1) -> "texreg_engine-1.dll"
func FormatLibraryName(name string, version int) string {
	switch runtime.GOOS {
	case "darwin":
		if version > 0 {
			return fmt.Sprintf("%s%s.%d%s", LibraryPrefix, name, version, LibraryExtension)
		}
		return fmt.Sprintf("%s%s%s", LibraryPrefix, name, LibraryExtension)
	case "windows":
		if version > 0 {
			return fmt.Sprintf("%s%s-%d%s", LibraryPrefix, name, version, LibraryExtension)
		}
		return fmt.Sprintf("%s%s%s", LibraryPrefix, name, LibraryExtension)
	default:
		if version > 0 {
			return fmt.Sprintf("%s%s%s.%d", LibraryPrefix, name, LibraryExtension, version)
		}
		return fmt.Sprintf("%s%s%s", LibraryPrefix, name, LibraryExtension)
	}
}

// LibrarySearchPaths returns the directories LoadLibrary searches,
// environment paths first.
func LibrarySearchPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			paths = append(paths, filepath.SplitList(dyldPath)...)
		}
		paths = append(paths,
			"/opt/homebrew/lib",
			"/usr/local/lib",
		)
	case "windows":
		if winPath := os.Getenv("PATH"); winPath != "" {
			paths = append(paths, filepath.SplitList(winPath)...)
		}
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Dir(exe))
		}
	default: // linux, freebsd
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths,
			"/usr/local/lib",
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/lib",
			"/lib",
		)
	}

	return paths
}
