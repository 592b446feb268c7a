// Package filesystem stores the document as a single JSON file under a
// base directory. Saves write through a temp file and rename so a crash
// never leaves a half-written document behind.
package filesystem

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const documentFile = "document.json"

type Store struct {
	basePath string
}

// NewStore creates a filesystem-backed store rooted at basePath.
func NewStore(basePath string) *Store {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &Store{basePath: basePath}
}

func (s *Store) path() string {
	return filepath.Join(s.basePath, documentFile)
}

func (s *Store) Load(ctx context.Context) ([]byte, error) {
	filePath := s.path()
	log := logrus.WithField("file_path", filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no document saved yet")
			return nil, fs.ErrNotExist
		}
		log.WithError(err).Error("Failed to read document")
		return nil, err
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, data []byte) error {
	filePath := s.path()
	log := logrus.WithFields(logrus.Fields{
		"file_path":   filePath,
		"data_length": len(data),
	})

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write document")
		return err
	}
	if err := os.Rename(tmp, filePath); err != nil {
		log.WithError(err).Error("Failed to replace document")
		return err
	}
	log.Debug("document saved")
	return nil
}
