package engine

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// TempFiles tracks every intermediate file of one run so it can be removed
// whether the run succeeds or not.
type TempFiles struct {
	dir   string
	mu    sync.Mutex
	paths []string
}

func NewTempFiles(dir string) *TempFiles {
	return &TempFiles{dir: dir}
}

func (t *TempFiles) Dir() string { return t.dir }

// Path registers name inside the run directory and returns its full path.
// Registration happens before anything is written there.
func (t *TempFiles) Path(name string) string {
	p := filepath.Join(t.dir, name)
	t.Register(p)
	return p
}

func (t *TempFiles) Register(path string) {
	t.mu.Lock()
	t.paths = append(t.paths, path)
	t.mu.Unlock()
}

func (t *TempFiles) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.paths...)
}

// Cleanup removes every registered file and then the run directory.
// Missing files are not errors.
func (t *TempFiles) Cleanup() error {
	t.mu.Lock()
	paths := t.paths
	t.paths = nil
	t.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if t.dir != "" {
		if err := os.RemoveAll(t.dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
