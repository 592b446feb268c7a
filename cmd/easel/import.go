package main

import (
	"context"
	"os"

	"github.com/phanxgames/easel"
)

// importFile feeds a document-shaped JSON file through the same load path
// as the persistence collaborator.
func importFile(ctx context.Context, syncer *easel.Syncer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return syncer.Import(ctx, data)
}
