package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestDir_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallbacksWhenXDGRuntimeDirMissing(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	wantRun := fmt.Sprintf("/run/user/%d", os.Getuid())
	wantTmp := fmt.Sprintf("/tmp/winmirror-runtime-%d", os.Getuid())
	if got != wantRun && got != wantTmp {
		t.Fatalf("Dir() = %q, want %q or %q", got, wantRun, wantTmp)
	}
}

func TestEndpointAndStatusPaths(t *testing.T) {
	td := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", td)

	endpoint, err := EndpointPath("default")
	if err != nil {
		t.Fatalf("EndpointPath() error: %v", err)
	}
	if want := filepath.Join(td, "winmirror", "default.sock"); endpoint != want {
		t.Fatalf("EndpointPath() = %q, want %q", endpoint, want)
	}

	status, err := StatusSocketPath("default")
	if err != nil {
		t.Fatalf("StatusSocketPath() error: %v", err)
	}
	if want := filepath.Join(td, "winmirror", "default.status.sock"); status != want {
		t.Fatalf("StatusSocketPath() = %q, want %q", status, want)
	}
}
