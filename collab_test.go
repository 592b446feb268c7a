package easel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInferIntent(t *testing.T) {
	tests := []struct {
		prompt string
		want   Intent
	}{
		{"draw a red barn", IntentCreate},
		{"Generate a sunset over water", IntentCreate},
		{"make this brighter", IntentCreate}, // "make" reads as creation
		{"remove the background", IntentUpdate},
		{"more contrast please", IntentUpdate},
		{"", IntentUpdate},
	}
	for _, tt := range tests {
		if got := InferIntent(tt.prompt); got != tt.want {
			t.Errorf("InferIntent(%q) = %q, want %q", tt.prompt, got, tt.want)
		}
	}
}

func TestHTTPPersisterLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/document" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"objects":[{"id":"a","text":"hi","scale":1}],"viewportPosition":{"x":3,"y":4}}`))
	}))
	defer srv.Close()

	p := NewHTTPPersister(srv.URL)
	doc, err := p.LoadDocument(context.Background())
	if err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if len(doc.Objects) != 1 || doc.Objects[0].ID != "a" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.ViewportPosition.X != 3 || doc.ViewportPosition.Y != 4 {
		t.Errorf("viewport = %+v", doc.ViewportPosition)
	}
}

func TestHTTPPersisterLoadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPPersister(srv.URL)
	_, err := p.LoadDocument(context.Background())
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PersistenceError", err)
	}
	if perr.Op != "load" {
		t.Errorf("op = %q, want load", perr.Op)
	}
}

func TestHTTPPersisterSave(t *testing.T) {
	var received Document
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/document" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	p := NewHTTPPersister(srv.URL)
	doc := &Document{Objects: []DocObject{{ID: "a", Text: "x", Scale: 1}}}
	if err := p.SaveDocument(context.Background(), doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	if len(received.Objects) != 1 || received.Objects[0].ID != "a" {
		t.Errorf("server received %+v", received)
	}
}

func TestHTTPPersisterSaveRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewHTTPPersister(srv.URL)
	err := p.SaveDocument(context.Background(), EmptyDocument())
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *PersistenceError", err)
	}
}

func TestHTTPGeneratorSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Intent != IntentCreate {
			t.Errorf("intent = %q", req.Intent)
		}
		w.Write([]byte(`{"success":true,"imageUrl":"https://x/out.png"}`))
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL)
	url, err := g.GenerateImage(context.Background(), GenerateRequest{
		Prompt: "draw a barn",
		Intent: IntentCreate,
	})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if url != "https://x/out.png" {
		t.Errorf("url = %q", url)
	}
}

func TestHTTPGeneratorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"success":false,"error":"model unavailable"}`))
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL)
	_, err := g.GenerateImage(context.Background(), GenerateRequest{Prompt: "x", Intent: IntentUpdate})
	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("error = %v, want *GenerationError", err)
	}
	if gerr.Message != "model unavailable" {
		t.Errorf("message = %q", gerr.Message)
	}
}

func TestHTTPGeneratorEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL)
	if _, err := g.GenerateImage(context.Background(), GenerateRequest{Prompt: "x", Intent: IntentCreate}); err == nil {
		t.Fatal("empty imageUrl accepted")
	}
}

func TestCanvasGenerateCreatePlacesAtCenter(t *testing.T) {
	c := NewCanvas(800, 600)
	c.SetResolver(newFakeResolver(400, 400))

	done := make(chan error, 1)
	c.Generate(context.Background(), generatorFunc(func(ctx context.Context, req GenerateRequest) (string, error) {
		return "test://generated", nil
	}), GenerateRequest{Prompt: "draw", Intent: IntentCreate}, nil, func(err error) {
		done <- err
	})
	if err := <-done; err != nil {
		t.Fatalf("generate: %v", err)
	}

	waitForLen(t, c, 1)
	it := c.Items()[0]
	if it.SourceRef != "test://generated" {
		t.Errorf("sourceRef = %q", it.SourceRef)
	}
}

func TestCanvasGenerateUpdateReplacesTarget(t *testing.T) {
	c := NewCanvas(800, 600)
	c.SetResolver(newFakeResolver(400, 400))
	target := addResolvedImage(c, 10, 10, 100, 100)
	id := target.ID

	done := make(chan error, 1)
	c.Generate(context.Background(), generatorFunc(func(ctx context.Context, req GenerateRequest) (string, error) {
		return "test://v2", nil
	}), GenerateRequest{Prompt: "brighter", Intent: IntentUpdate}, target, func(err error) {
		done <- err
	})
	if err := <-done; err != nil {
		t.Fatalf("generate: %v", err)
	}

	waitFor(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return target.SourceRef == "test://v2"
	})
	if c.Len() != 1 {
		t.Errorf("items = %d, want the target replaced in place", c.Len())
	}
	if target.ID != id {
		t.Error("update changed the target ID")
	}
}

func TestCanvasGenerateErrorNotifies(t *testing.T) {
	c := NewCanvas(800, 600)
	var notified error
	c.SetNotify(func(err error) { notified = err })

	done := make(chan error, 1)
	c.Generate(context.Background(), generatorFunc(func(ctx context.Context, req GenerateRequest) (string, error) {
		return "", &GenerationError{Message: "nope"}
	}), GenerateRequest{Prompt: "x", Intent: IntentCreate}, nil, func(err error) {
		done <- err
	})
	if err := <-done; err == nil {
		t.Fatal("completion got nil error")
	}
	if notified == nil {
		t.Error("failure was not surfaced as a notification")
	}
	if c.Len() != 0 {
		t.Error("failed generation left an item behind")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitForLen(t *testing.T, c *Canvas, n int) {
	t.Helper()
	waitFor(t, func() bool { return c.Len() == n })
}

// generatorFunc adapts a function to the Generator interface.
type generatorFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f generatorFunc) GenerateImage(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}
