// Package testutil provides shared test helpers for data directories, documents and clocks.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/storage"
)

// TestStore creates a temporary data directory with an FS provider.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestSQLite opens a temporary SQLite provider that is closed on cleanup.
func TestSQLite(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "palacebot-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ErrDiskFull is returned by every BrokenStore write.
var ErrDiskFull = errors.New("disk full")

// BrokenStore is a storage.Provider whose writes always fail. Reads see
// an empty store.
type BrokenStore struct {
	mu     sync.Mutex
	writes int
}

var _ storage.Provider = (*BrokenStore)(nil)

func (s *BrokenStore) Read(name string) ([]byte, error) {
	return nil, fmt.Errorf("read %s: %w", name, os.ErrNotExist)
}

func (s *BrokenStore) Write(name string, _ []byte) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return fmt.Errorf("write %s: %w", name, ErrDiskFull)
}

// Writes returns how many writes were attempted.
func (s *BrokenStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
