package memory

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"testing"
)

func TestLoadBeforeSave(t *testing.T) {
	s := NewStore()
	_, err := s.Load(context.Background())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error = %v, want fs.ErrNotExist", err)
	}
}

func TestSaveThenLoad(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	doc := []byte(`{"objects":[]}`)

	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, doc) {
		t.Errorf("loaded %s, want %s", got, doc)
	}
}

func TestSaveReplaces(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.Save(ctx, []byte(`one`))
	s.Save(ctx, []byte(`two`))

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(got) != "two" {
		t.Errorf("loaded %s, want the latest save", got)
	}
}

func TestLoadReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.Save(ctx, []byte(`stable`))

	got, _ := s.Load(ctx)
	got[0] = 'X'

	again, _ := s.Load(ctx)
	if string(again) != "stable" {
		t.Error("mutating a loaded slice corrupted the store")
	}
}

func TestSaveCopiesInput(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	buf := []byte(`stable`)
	s.Save(ctx, buf)
	buf[0] = 'X'

	got, _ := s.Load(ctx)
	if string(got) != "stable" {
		t.Error("mutating the caller's slice corrupted the store")
	}
}
