package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// TokenStore persists a token pair across process restarts. It stands in
// for the browser storage of the original client; abstracting it keeps
// the session manager testable without touching the filesystem.
type TokenStore interface {
	Load() (TokenPair, bool, error)
	Save(TokenPair) error
	Clear() error
}

// FileStore keeps the token pair as a JSON file with owner-only
// permissions.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore { return &FileStore{path: path} }

func (s *FileStore) Load() (TokenPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bs, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return TokenPair{}, false, nil
		}
		return TokenPair{}, false, err
	}
	var pair TokenPair
	if err := json.Unmarshal(bs, &pair); err != nil {
		// A corrupt file is treated as no stored session.
		return TokenPair{}, false, nil
	}
	if pair.Access == "" || pair.Refresh == "" {
		return TokenPair{}, false, nil
	}
	return pair, true, nil
}

func (s *FileStore) Save(pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bs, err := json.Marshal(pair)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, bs, 0o600)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemStore is an in-memory TokenStore for tests.
type MemStore struct {
	mu   sync.Mutex
	pair TokenPair
	set  bool
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) Load() (TokenPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, s.set, nil
}

func (s *MemStore) Save(pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair, s.set = pair, true
	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair, s.set = TokenPair{}, false
	return nil
}
