// Package sqlite stores document revisions in a SQLite database. Every
// save appends a revision keyed by a ULID (lexicographic order is time
// order), and loads return the newest one, so earlier states survive for
// manual recovery.
package sqlite

import (
	"context"
	"database/sql"
	"io/fs"
	"log"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) a SQLite-backed store.
func NewStore(dataSourceName string) *Store {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}
	stmt := `CREATE TABLE IF NOT EXISTS revisions (id TEXT PRIMARY KEY, data BLOB);`
	if _, err = db.Exec(stmt); err != nil {
		log.Fatalf("failed to create revisions table: %v", err)
	}
	return &Store{db: db}
}

func (s *Store) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM revisions ORDER BY id DESC LIMIT 1").Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			logrus.Debug("no document saved yet")
			return nil, fs.ErrNotExist
		}
		logrus.WithError(err).Error("Failed to load document")
		return nil, err
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, data []byte) error {
	id := ulid.Make().String()
	log := logrus.WithFields(logrus.Fields{
		"revision_id": id,
		"data_length": len(data),
	})

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO revisions (id, data) VALUES (?, ?)", id, data)
	if err != nil {
		log.WithError(err).Error("Failed to save document")
		return err
	}
	log.Debug("document revision saved")
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
