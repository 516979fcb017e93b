package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/apperr"
)

// Document mirrors a single JSON value to one entry of a Provider.
// Every Save is a full rewrite of the entry.
type Document struct {
	store Provider
	name  string

	mu  sync.Mutex
	sum string // SHA-256 of the bytes last loaded or saved
}

// NewDocument binds name within store.
func NewDocument(store Provider, name string) *Document {
	return &Document{store: store, name: name}
}

// Name returns the document name within its provider.
func (d *Document) Name() string {
	return d.name
}

// Load decodes the stored document into v. It reports false without
// touching v when nothing has been stored yet.
func (d *Document) Load(v any) (bool, error) {
	data, err := d.store.Read(d.name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: storage: decode %s: %w", apperr.ErrPersistence, d.name, err)
	}
	d.remember(data)
	return true, nil
}

// Save encodes v as indented JSON and replaces the stored document.
func (d *Document) Save(v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("%w: storage: encode %s: %w", apperr.ErrPersistence, d.name, err)
	}
	if err := d.store.Write(d.name, data); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrPersistence, err)
	}
	d.remember(data)
	return nil
}

// Stale reports whether the stored bytes differ from the ones this
// document last loaded or saved. A missing entry is never stale.
func (d *Document) Stale() (bool, error) {
	data, err := d.store.Read(d.name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return digest(data) != d.sum, nil
}

func (d *Document) remember(data []byte) {
	d.mu.Lock()
	d.sum = digest(data)
	d.mu.Unlock()
}

func digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Encode renders v the way documents are stored: two-space indentation,
// non-ASCII text and HTML characters left unescaped.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
