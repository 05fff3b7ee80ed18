package whatsapp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCredentialSaver_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	saver := NewFileCredentialSaver(path)

	require.NoError(t, saver.Save(json.RawMessage(`{"jid":"123@s.whatsapp.net"}`)))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jid":"123@s.whatsapp.net"}`, string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileCredentialSaver_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "creds.json")
	saver := NewFileCredentialSaver(path)

	require.NoError(t, saver.Save(json.RawMessage(`{}`)))
	assert.FileExists(t, path)
}

func TestFileCredentialSaver_OverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	saver := NewFileCredentialSaver(path)

	require.NoError(t, saver.Save(json.RawMessage(`{"jid":"old"}`)))
	require.NoError(t, saver.Save(json.RawMessage(`{"jid":"new"}`)))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jid":"new"}`, string(content))
}
