// Package store selects and describes the document stores backing the
// HTTP service. Implementations live in the memory, filesystem, and
// sqlite subpackages; all of them report a missing document with
// fs.ErrNotExist.
package store

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/phanxgames/easel/store/filesystem"
	"github.com/phanxgames/easel/store/memory"
	"github.com/phanxgames/easel/store/sqlite"
)

// Store persists the single canvas document as an opaque JSON blob.
type Store interface {
	// Load returns the most recently saved document. A document that was
	// never saved is reported with fs.ErrNotExist.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the persisted document.
	Save(ctx context.Context, data []byte) error
}

// FromEnv selects a store from STORAGE_TYPE: "filesystem" (path from
// LOCAL_STORAGE_PATH), "sqlite" (DSN from DATA_SOURCE_NAME), anything
// else in-memory.
func FromEnv() Store {
	storageType := os.Getenv("STORAGE_TYPE")

	fields := logrus.Fields{"storageType": storageType}
	var st Store

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		fields["basePath"] = basePath
		st = filesystem.NewStore(basePath)
	case "sqlite":
		dsn := os.Getenv("DATA_SOURCE_NAME")
		fields["dataSourceName"] = dsn
		st = sqlite.NewStore(dsn)
	default:
		st = memory.NewStore()
		fields["storageType"] = "in-memory"
	}
	logrus.WithFields(fields).Info("Use storage")
	return st
}
