// Package workspace provides exclusively-owned temporary directories scoped
// to a single compositing request. Every path handed out lives inside the
// workspace directory, so one Release removes all artifacts recursively.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File names inside a workspace.
const (
	sourceName       = "original.mp4"
	intermediateName = "intermediate.mp4"
	outputName       = "annotated.mp4"
)

// Workspace is a process-exclusive temporary directory.
type Workspace struct {
	dir     string
	release sync.Once
	err     error
}

// Acquire creates a uniquely-named workspace directory under baseDir. An
// empty baseDir uses the OS temp root. The caller must Release the workspace
// on every exit path; Release is safe to defer immediately.
func Acquire(baseDir string) (*Workspace, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create workspace root: %w", err)
		}
	}

	dir, err := os.MkdirTemp(baseDir, "annotation-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// SourcePath is where the fetched source asset is written.
func (w *Workspace) SourcePath() string { return filepath.Join(w.dir, sourceName) }

// IntermediatePath is the hand-off point between chained transcode stages.
func (w *Workspace) IntermediatePath() string { return filepath.Join(w.dir, intermediateName) }

// OutputPath is where the composited output is written.
func (w *Workspace) OutputPath() string { return filepath.Join(w.dir, outputName) }

// Path returns a path for an arbitrary artifact inside the workspace.
func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

// Release removes the workspace and everything in it. It runs at most once;
// repeated calls return the first result.
func (w *Workspace) Release() error {
	w.release.Do(func() {
		w.err = os.RemoveAll(w.dir)
	})
	return w.err
}
