package whatsapp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileCredentialSaver persists pairing credential blobs next to the session
// store so operators can inspect which account the gateway is bound to.
type FileCredentialSaver struct {
	path string
}

func NewFileCredentialSaver(path string) *FileCredentialSaver {
	return &FileCredentialSaver{path: path}
}

func (s *FileCredentialSaver) Save(creds json.RawMessage) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, creds, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
