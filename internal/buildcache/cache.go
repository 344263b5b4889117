// Package buildcache remembers what the last build produced so the compile
// step can be skipped when nothing changed.
package buildcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"grfbuild/internal/project"
)

// Current schema version - increment when Record format changes
const schemaVersion uint16 = 1

// DirName is the cache directory created inside the build directory.
const DirName = ".grfbuild"

// Cache stores one Record per output name. Thread-safe for concurrent access.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Record describes one build of an output.
type Record struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Name string
	// Fragments lists the emitted files in output order.
	Fragments []string
	// Artifact is the digest of the .nml file.
	Artifact project.Digest
	// Key combines the artifact with the language files nmlc reads.
	Key project.Digest

	// Compiled is set once nmlc succeeded for Key.
	Compiled   bool
	CompiledAt time.Time
}

// Open returns the cache kept under buildDir.
func Open(buildDir string) *Cache {
	return &Cache{dir: filepath.Join(buildDir, DirName)}
}

// Dir is where records are stored.
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) pathFor(name string) string {
	return filepath.Join(c.dir, name+".mp")
}

// Put writes rec atomically.
func (c *Cache) Put(rec *Record) error {
	if c == nil || rec == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rec.Schema = schemaVersion
	p := c.pathFor(rec.Name)
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(c.dir, "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(rec); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get reads the record for name. A missing record or one written by another
// schema version reports found=false.
func (c *Cache) Get(name string) (rec *Record, found bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var out Record
	if err := msgpack.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("corrupt build cache %s: %w", c.pathFor(name), err)
	}
	if out.Schema != schemaVersion {
		return nil, false, nil
	}
	return &out, true, nil
}

// UpToDate reports whether the last successful compile of name used key.
func (c *Cache) UpToDate(name string, key project.Digest) bool {
	rec, ok, err := c.Get(name)
	if err != nil || !ok {
		return false
	}
	return rec.Compiled && !key.IsZero() && rec.Key == key
}

// DropAll removes every record.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(c.dir)
}
