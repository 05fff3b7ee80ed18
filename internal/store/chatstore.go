package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Snapshot holds the accumulated chat and contact records. Records are
// opaque provider shapes, kept in insertion order, duplicates accepted.
type Snapshot struct {
	Chats    []json.RawMessage `json:"chats"`
	Contacts []json.RawMessage `json:"contacts"`
}

// ChatContactStore is a read-merge-write JSON snapshot file. It assumes a
// single writer; the mutex only protects against interleaved reads.
type ChatContactStore struct {
	path      string
	encryptor *encryptor
	mu        sync.Mutex
}

func NewChatContactStore(path string) (*ChatContactStore, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}

	enc, err := newEncryptor()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot encryptor: %w", err)
	}

	return &ChatContactStore{path: path, encryptor: enc}, nil
}

// Encrypted reports whether snapshot files are written encrypted.
func (s *ChatContactStore) Encrypted() bool {
	return s.encryptor.enabled()
}

// Read returns the current snapshot, or an empty one if no snapshot file
// exists yet.
func (s *ChatContactStore) Read() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *ChatContactStore) read() (Snapshot, error) {
	empty := Snapshot{Chats: []json.RawMessage{}, Contacts: []json.RawMessage{}}

	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return empty, fmt.Errorf("failed to read snapshot: %w", err)
	}

	plaintext, err := s.encryptor.decrypt(content)
	if err != nil {
		return empty, err
	}

	var snap Snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return empty, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snap.Chats == nil {
		snap.Chats = []json.RawMessage{}
	}
	if snap.Contacts == nil {
		snap.Contacts = []json.RawMessage{}
	}
	return snap, nil
}

// Merge appends the incoming chats and contacts to the stored sequences and
// rewrites the snapshot file with the concatenation.
func (s *ChatContactStore) Merge(newChats, newContacts []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read()
	if err != nil {
		return err
	}

	existing.Chats = append(existing.Chats, newChats...)
	existing.Contacts = append(existing.Contacts, newContacts...)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	content, err := s.encryptor.encrypt(data)
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.path, content, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}
