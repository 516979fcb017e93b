// Package storage persists the bot's JSON documents.
package storage

// Provider is the interface for named document storage.
//
// Implementations report a missing document with an error satisfying
// errors.Is(err, os.ErrNotExist).
type Provider interface {
	// Read returns the raw bytes stored under name.
	Read(name string) ([]byte, error)
	// Write replaces the bytes stored under name.
	Write(name string, content []byte) error
}
