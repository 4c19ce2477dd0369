package form

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Registry serves the current schema and swaps it when the file on disk changes.
type Registry struct {
	path    string
	current atomic.Pointer[Schema]
}

// NewRegistry loads the schema at path, or the embedded default when path is empty.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if path == "" {
		r.current.Store(Default())
		return r, nil
	}
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	r.current.Store(s)
	return r, nil
}

// NewStaticRegistry wraps a fixed schema.
func NewStaticRegistry(s *Schema) *Registry {
	r := &Registry{}
	r.current.Store(s)
	return r
}

func (r *Registry) Schema() *Schema { return r.current.Load() }

// Reload re-reads the schema file. A schema that fails to parse or check is
// rejected and the previous one stays in service.
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	s, err := Load(r.path)
	if err != nil {
		return err
	}
	r.current.Store(s)
	return nil
}

// Watch reloads the schema on every write to its file until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
func (r *Registry) Watch(ctx context.Context) error {
	if r.path == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("schema watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(r.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(r.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if err := r.Reload(); err != nil {
				log.Printf("Schema reload failed, keeping previous: %v", err)
				continue
			}
			log.Printf("Schema reloaded from %s", r.path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("Schema watcher error: %v", err)
		}
	}
}
