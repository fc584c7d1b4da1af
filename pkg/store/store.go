package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	dirPerm     = 0o755
	filePerm    = 0o644
	DefaultRoot = ".assetgraph"
)

// Store is a directory tree addressed by path segments. Materializers use it
// as their extraction cache.
type Store interface {
	// Path returns the absolute filesystem path for the given segments
	// joined under the store root. Does not create or verify the path.
	Path(segments ...string) string
	// Exists reports whether the path at the given segments exists.
	Exists(segments ...string) (bool, error)
	// EnsureDir creates the directory at segments (starting at store root),
	// including parents.
	EnsureDir(segments ...string) error
	// Remove deletes the entire tree at segments.
	Remove(segments ...string) error
	// WriteFile writes data to the file at segments, creating parents.
	WriteFile(data []byte, segments ...string) error
	// ReadFile reads the file at segments.
	ReadFile(segments ...string) ([]byte, error)
	// CopyFrom copies the file at src into segments, creating parents.
	CopyFrom(src string, segments ...string) error
}

func New(root string) Store {
	return &store{root: root}
}

// Default returns the store under ~/.assetgraph.
func Default() (Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("determining home directory: %w", err)
	}
	return &store{root: filepath.Join(home, DefaultRoot)}, nil
}

type store struct {
	root string
}

var _ Store = &store{}

func (s *store) Path(segments ...string) string {
	return filepath.Join(append([]string{s.root}, segments...)...)
}

func (s *store) Exists(segments ...string) (bool, error) {
	_, err := os.Stat(s.Path(segments...))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *store) EnsureDir(segments ...string) error {
	return os.MkdirAll(s.Path(segments...), dirPerm)
}

func (s *store) Remove(segments ...string) error {
	return os.RemoveAll(s.Path(segments...))
}

func (s *store) WriteFile(data []byte, segments ...string) error {
	dest := s.Path(segments...)
	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return err
	}
	return os.WriteFile(dest, data, filePerm)
}

func (s *store) ReadFile(segments ...string) ([]byte, error) {
	return os.ReadFile(s.Path(segments...))
}

func (s *store) CopyFrom(src string, segments ...string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return s.write(in, segments...)
}

// write streams r into the file at segments through a temporary sibling so
// readers never observe a partial file.
func (s *store) write(r io.Reader, segments ...string) error {
	dest := s.Path(segments...)
	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".partial-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// WriteFrom streams r into the file at segments.
func WriteFrom(s Store, r io.Reader, segments ...string) error {
	if st, ok := s.(*store); ok {
		return st.write(r, segments...)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.WriteFile(data, segments...)
}
