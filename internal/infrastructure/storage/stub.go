package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryReportStore keeps reports in memory and serves fake URLs. It backs
// the CLI dry-run mode and tests.
type MemoryReportStore struct {
	// BaseURL prefixes generated download URLs.
	BaseURL string
	prefix  string

	mu      sync.RWMutex
	objects map[string]StoredObject
}

// StoredObject is a report held by MemoryReportStore.
type StoredObject struct {
	Data        []byte
	ContentType string
}

// NewMemoryReportStore creates an empty store writing under prefix.
func NewMemoryReportStore(prefix string) *MemoryReportStore {
	return &MemoryReportStore{
		BaseURL: "https://storage.example.com",
		prefix:  prefix,
		objects: make(map[string]StoredObject),
	}
}

func (s *MemoryReportStore) Key(name string) string {
	return joinKey(s.prefix, name)
}

func (s *MemoryReportStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = StoredObject{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (s *MemoryReportStore) DownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/" + key + "?expires=" + expiresAt.UTC().Format(time.RFC3339), expiresAt, nil
}

// Object returns the stored report under key.
func (s *MemoryReportStore) Object(key string) (StoredObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}

// Keys lists stored keys in no particular order.
func (s *MemoryReportStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
