package internal

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/apperr"
)

func execConfig(t *testing.T, driver string) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Storage.Driver = driver
	cfg.Storage.Dir = dir
	cfg.Storage.SQLitePath = filepath.Join(dir, "bot.db")
	return cfg
}

func execCmd(t *testing.T, cfg *Config, group, line string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := Exec(context.Background(), group, strings.Fields(line),
		WithConfig(cfg), WithOutput(&out), WithLogOutput(io.Discard))
	return out.String(), err
}

func TestExec_FileDriverPersists(t *testing.T) {
	cfg := execConfig(t, StorageDriverFile)

	_, err := execCmd(t, cfg, "g1", "/add_relation Jade 123 Alice Bob")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.Storage.Dir, cfg.Storage.RelationsFile))

	out, err := execCmd(t, cfg, "g1", "/list_relations")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Jade(123)")
}

func TestExec_SQLiteDriverPersists(t *testing.T) {
	cfg := execConfig(t, StorageDriverSQLite)

	_, err := execCmd(t, cfg, "", "/add_borrow 100 alice")
	require.NoError(t, err)
	out, err := execCmd(t, cfg, "", "/query_borrow alice")
	require.NoError(t, err)
	assert.Contains(t, out, "- Principal: 100.00")
	assert.NoFileExists(t, filepath.Join(cfg.Storage.Dir, cfg.Storage.LedgerFile), "sqlite driver wrote a ledger file")
}

func TestExec_RejectedCommandReturnsError(t *testing.T) {
	cfg := execConfig(t, StorageDriverFile)
	out, err := execCmd(t, cfg, "", "/list_relations")
	assert.ErrorIs(t, err, apperr.ErrInvalidContext)
	assert.Contains(t, out, "group chats")
}

func TestExec_InvalidConfig(t *testing.T) {
	cfg := execConfig(t, "s3")
	_, err := execCmd(t, cfg, "", "/help")
	assert.Error(t, err)
}
