package sellerapi

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCredentialStore_CurrentMissingFile(t *testing.T) {
	store := NewFileCredentialStore(filepath.Join(t.TempDir(), "nope.json"))

	set, err := store.Current()
	require.NoError(t, err)
	assert.True(t, set.IsEmpty())
}

func TestFileCredentialStore_CurrentReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	payload := `[{"name":"session","value":"abc"},{"name":"csrf","value":"xyz"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	store := NewFileCredentialStore(path)
	set, err := store.Current()
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "session", set[0].Name)
	assert.Equal(t, "abc", set[0].Value)
	// Order of the login flow's cookie dump is preserved
	assert.Equal(t, "csrf", set[1].Name)
}

func TestFileCredentialStore_CurrentMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	store := NewFileCredentialStore(path)
	_, err := store.Current()
	assert.Error(t, err)
}

func TestFileCredentialStore_ReplacePersistsAndPublishes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions", "cookies.json")
	store := NewFileCredentialStore(path)

	fresh := CredentialSet{{Name: "session", Value: "new"}}
	require.NoError(t, store.Replace(fresh))

	// Published in memory
	current, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, fresh, current)

	// Persisted on disk in the login flow's format
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk CredentialSet
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, fresh, onDisk)

	// No leftover temp files
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileCredentialStore_ReplaceOverwritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	store := NewFileCredentialStore(path)

	require.NoError(t, store.Replace(CredentialSet{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}))
	require.NoError(t, store.Replace(CredentialSet{{Name: "c", Value: "3"}}))

	current, err := store.Current()
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "c", current[0].Name)
}
