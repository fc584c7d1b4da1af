package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WorkspacePrefix names every scratch workspace so orphans left behind by
// a crashed process can be found again.
const WorkspacePrefix = "assetgraph-scratch-"

// OrphanAge is how long a scratch workspace must have gone unmodified
// before CleanupOrphans treats it as abandoned. Younger ones may belong to
// a run still in progress in another process.
const OrphanAge = time.Hour

// Workspace is a private scratch directory owned by one resolution run. The
// directory is created on first use and removed by Close.
type Workspace struct {
	root string
	name string

	mu      sync.Mutex
	created bool
	seq     int
}

// NewWorkspace returns a workspace under root (the system temp directory
// when empty) with a name unique to this invocation.
func NewWorkspace(root string) *Workspace {
	if root == "" {
		root = os.TempDir()
	}
	return &Workspace{
		root: root,
		name: WorkspacePrefix + uuid.NewString(),
	}
}

// Dir returns the workspace directory, creating it if needed.
func (w *Workspace) Dir() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ensure()
}

func (w *Workspace) ensure() (string, error) {
	dir := filepath.Join(w.root, w.name)
	if w.created {
		return dir, nil
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("creating workspace %s: %w", dir, err)
	}
	w.created = true
	return dir, nil
}

// Import copies src into the workspace and returns the copy's path. The
// copy keeps src's base name so tools keyed on the extension still work.
func (w *Workspace) Import(src string) (string, error) {
	w.mu.Lock()
	dir, err := w.ensure()
	w.seq++
	seq := w.seq
	w.mu.Unlock()
	if err != nil {
		return "", err
	}

	sub := fmt.Sprintf("%04d", seq)
	s := New(dir)
	if err := s.CopyFrom(src, sub, filepath.Base(src)); err != nil {
		return "", fmt.Errorf("copying %s into workspace: %w", src, err)
	}
	return s.Path(sub, filepath.Base(src)), nil
}

// Close removes the workspace. Calling it on a workspace that was never
// used is a no-op.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.created {
		return nil
	}
	w.created = false
	return os.RemoveAll(filepath.Join(w.root, w.name))
}

// CleanupOrphans removes every entry under root whose name starts with
// prefix and that was last modified at least minAge ago, and returns how
// many were removed. A missing root is not an error. Entries that cannot be
// removed are skipped; the last such error is returned alongside the count.
func CleanupOrphans(root, prefix string, minAge time.Duration) (int, error) {
	if root == "" {
		root = os.TempDir()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading %s: %w", root, err)
	}

	cutoff := time.Now().Add(-minAge)
	var removed int
	var lastErr error
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if !os.IsNotExist(err) {
				lastErr = err
			}
			continue
		}
		if minAge > 0 && info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			lastErr = err
			continue
		}
		removed++
	}
	return removed, lastErr
}
