// Package memory is the default in-memory document store. Contents are
// lost on restart; it exists for development and tests.
package memory

import (
	"context"
	"io/fs"
	"sync"

	"github.com/sirupsen/logrus"
)

type Store struct {
	mu   sync.RWMutex
	data []byte
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) Load(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if data == nil {
		logrus.Debug("no document saved yet")
		return nil, fs.ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Store) Save(ctx context.Context, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	s.data = stored
	s.mu.Unlock()

	logrus.WithField("data_length", len(data)).Debug("document saved")
	return nil
}
