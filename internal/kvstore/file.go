package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultCapacity bounds the file store at roughly the quota a browser
// local-storage area would grant.
const DefaultCapacity = 5 * 1024 * 1024

// File is a durable KV persisted as a single JSON document. Every Set
// rewrites the document atomically (temp file + rename), so readers in
// other processes never observe a partial blob.
type File struct {
	mu       sync.RWMutex
	path     string
	data     map[string]string
	capacity int
}

// OpenFile loads (or creates) the store at path. capacity <= 0 selects
// DefaultCapacity.
func OpenFile(path string, capacity int) (*File, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	f := &File{path: path, data: make(map[string]string), capacity: capacity}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f.data); err != nil {
			return nil, fmt.Errorf("parse store file: %w", err)
		}
	}
	return f, nil
}

// Path returns the backing file path. The cross-process watcher observes it.
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	size := len(key) + len(value)
	for k, v := range f.data {
		if k == key {
			continue
		}
		size += len(k) + len(v)
	}
	if size > f.capacity {
		return ErrQuotaExceeded
	}

	prev, had := f.data[key]
	f.data[key] = value
	if err := f.flushLocked(); err != nil {
		// Roll back the in-memory view so state matches disk.
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *File) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.data[key]
	if !had {
		return
	}
	delete(f.data, key)
	if err := f.flushLocked(); err != nil {
		f.data[key] = prev
	}
}

func (f *File) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys
}

// Reload re-reads the document from disk, replacing the in-memory view.
// Used when another process rewrote the file.
func (f *File) Reload() error {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		f.mu.Lock()
		f.data = make(map[string]string)
		f.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload store file: %w", err)
	}
	fresh := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fresh); err != nil {
			return fmt.Errorf("parse store file: %w", err)
		}
	}
	f.mu.Lock()
	f.data = fresh
	f.mu.Unlock()
	return nil
}

func (f *File) flushLocked() error {
	raw, err := json.Marshal(f.data)
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".prefectlog-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close store file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
