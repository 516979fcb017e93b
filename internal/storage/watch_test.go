package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatch_ReportsWatchedDocumentsOnly(t *testing.T) {
	s := tempStore(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := map[string]int{}
	go Watch(ctx, s.Root(), []string{"ledger.json"}, logger, func(name string) {
		mu.Lock()
		seen[name]++
		mu.Unlock()
	})

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(s.Root(), "other.json"), []byte("{}"), 0o644)
	_ = s.Write("ledger.json", []byte("{}"))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["ledger.json"] > 0
	}, 2*time.Second, 20*time.Millisecond, "expected change callback for ledger.json")

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, seen["other.json"], "unwatched file reported: %v", seen)
}
