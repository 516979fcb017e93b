package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/apperr"
)

type sample struct {
	Name  string            `json:"name"`
	Items map[string]string `json:"items"`
}

func TestDocument_LoadMissingIsFirstRun(t *testing.T) {
	doc := NewDocument(tempStore(t), "first.json")
	var v sample
	found, err := doc.Load(&v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDocument_SaveLoadRoundTrip(t *testing.T) {
	store := tempStore(t)
	doc := NewDocument(store, "doc.json")
	in := sample{Name: "宫群 <a&b>", Items: map[string]string{"k": "v"}}
	require.NoError(t, doc.Save(in))

	raw, _ := store.Read("doc.json")
	assert.Contains(t, string(raw), "宫群 <a&b>", "text must be stored unescaped")

	var out sample
	found, err := NewDocument(store, "doc.json").Load(&out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestDocument_LoadCorruptIsPersistenceFailure(t *testing.T) {
	store := tempStore(t)
	_ = store.Write("bad.json", []byte("{not json"))
	var v sample
	_, err := NewDocument(store, "bad.json").Load(&v)
	assert.ErrorIs(t, err, apperr.ErrPersistence)
}

func TestDocument_Stale(t *testing.T) {
	store := tempStore(t)
	doc := NewDocument(store, "doc.json")

	stale, err := doc.Stale()
	require.NoError(t, err)
	assert.False(t, stale, "missing document")

	require.NoError(t, doc.Save(sample{Name: "a"}))
	stale, _ = doc.Stale()
	assert.False(t, stale, "own write")

	_ = store.Write("doc.json", []byte(`{"name":"edited"}`))
	stale, _ = doc.Stale()
	assert.True(t, stale, "external edit")
}
