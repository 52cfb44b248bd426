// Package consent persists the device-local data-collection consent flag.
//
// Consent is deliberately kept outside the server database: it is a
// per-device decision keyed by user id, never synchronized across devices
// and never deleted by this service.
package consent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

var safeUserID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store reads and writes consent records as one JSON file per user.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a file-backed consent store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create consent directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(userID string) (string, error) {
	if !safeUserID.MatchString(userID) {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return filepath.Join(s.dir, "consent_"+userID+".json"), nil
}

// Get returns the consent record for a user, or (nil, nil) when the user
// has not decided yet.
func (s *Store) Get(userID string) (*domain.ConsentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(userID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read consent record: %w", err)
	}

	var rec domain.ConsentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode consent record: %w", err)
	}
	return &rec, nil
}

// Set records the user's consent decision. The write is atomic: a temp
// file is renamed over the target so readers never see a partial record.
func (s *Store) Set(userID string, given bool) (*domain.ConsentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(userID)
	if err != nil {
		return nil, err
	}

	rec := &domain.ConsentRecord{
		UserID:    userID,
		Given:     given,
		DecidedAt: time.Now(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode consent record: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, fmt.Errorf("write consent record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("commit consent record: %w", err)
	}
	return rec, nil
}
