package easel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Persister is the persistence collaborator: a narrow request/response
// contract that stores and retrieves the single canvas document.
type Persister interface {
	LoadDocument(ctx context.Context) (*Document, error)
	SaveDocument(ctx context.Context, doc *Document) error
}

// Intent tells the generation collaborator whether the result spawns a new
// image item or replaces an existing item's source. It is an explicit
// required input, never inferred inside the engine.
type Intent string

const (
	IntentCreate Intent = "create"
	IntentUpdate Intent = "update"
)

// GenerateRequest is the generation collaborator's request body.
type GenerateRequest struct {
	Prompt        string `json:"prompt"`
	StyleImage    string `json:"styleImage,omitempty"`
	SelectedImage string `json:"selectedImage,omitempty"`
	Intent        Intent `json:"intent"`
}

// Generator is the image-generation collaborator: given a prompt and
// optional reference images, it returns an image resource or an error.
type Generator interface {
	GenerateImage(ctx context.Context, req GenerateRequest) (imageURL string, err error)
}

// InferIntent guesses create-vs-update from prompt wording. This is a UI
// convenience for prefilling the intent field; callers still pass an
// explicit Intent in every GenerateRequest.
func InferIntent(prompt string) Intent {
	lower := strings.ToLower(prompt)
	for _, kw := range []string{"create", "draw", "generate", "make", "add", "new"} {
		if strings.Contains(lower, kw) {
			return IntentCreate
		}
	}
	return IntentUpdate
}

// HTTPPersister talks to the persistence collaborator over HTTP:
// GET /api/document and POST /api/document with the document JSON body.
type HTTPPersister struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPPersister creates a persister for the given base URL.
func NewHTTPPersister(baseURL string) *HTTPPersister {
	return &HTTPPersister{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadDocument fetches the persisted document. The collaborator serves an
// empty default document when nothing has been saved yet.
func (p *HTTPPersister) LoadDocument(ctx context.Context) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/api/document", nil)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &PersistenceError{Op: "load", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	return ParseDocument(body)
}

// SaveDocument posts the document to the collaborator.
func (p *HTTPPersister) SaveDocument(ctx context.Context, doc *Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/document", bytes.NewReader(data))
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.Client.Do(req)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &PersistenceError{Op: "save", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}

// HTTPGenerator talks to the generation collaborator over HTTP:
// POST /api/generate with a GenerateRequest body, expecting
// {success: true, imageUrl} or {error} with a non-2xx status.
type HTTPGenerator struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPGenerator creates a generator client for the given base URL.
// Generation is slow; the default timeout is generous.
func NewHTTPGenerator(baseURL string) *HTTPGenerator {
	return &HTTPGenerator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// GenerateImage submits the request and returns the resulting image URL.
func (g *HTTPGenerator) GenerateImage(ctx context.Context, genReq GenerateRequest) (string, error) {
	data, err := json.Marshal(genReq)
	if err != nil {
		return "", &GenerationError{Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", &GenerationError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.Client.Do(req)
	if err != nil {
		return "", &GenerationError{Message: err.Error()}
	}
	defer resp.Body.Close()

	var out struct {
		Success  bool   `json:"success"`
		ImageURL string `json:"imageUrl"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &GenerationError{Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return "", &GenerationError{Message: msg}
	}
	if out.ImageURL == "" {
		return "", &GenerationError{Message: "collaborator returned no image"}
	}
	return out.ImageURL, nil
}
