package easel

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ImageResolver resolves an item's source reference into pixel data and
// intrinsic dimensions. Implementations must be safe for concurrent use:
// resolution runs off the interaction loop.
type ImageResolver interface {
	Resolve(ctx context.Context, sourceRef string) (image.Image, error)
}

// StandardResolver decodes data URIs, fetches http(s) URLs, and reads
// local file paths. It is the default resolver on a new Canvas.
type StandardResolver struct {
	Client *http.Client
}

// NewStandardResolver creates a resolver with a bounded fetch timeout.
func NewStandardResolver() *StandardResolver {
	return &StandardResolver{Client: &http.Client{Timeout: 30 * time.Second}}
}

// Resolve decodes the reference. Failures come back as a ResourceError so
// callers can skip the single item and continue.
func (r *StandardResolver) Resolve(ctx context.Context, sourceRef string) (image.Image, error) {
	switch {
	case sourceRef == "":
		return nil, &ResourceError{SourceRef: sourceRef, Err: fmt.Errorf("empty source reference")}
	case strings.HasPrefix(sourceRef, "data:"):
		return r.resolveDataURI(sourceRef)
	case strings.HasPrefix(sourceRef, "http://"), strings.HasPrefix(sourceRef, "https://"):
		return r.resolveURL(ctx, sourceRef)
	default:
		return r.resolveFile(sourceRef)
	}
}

func (r *StandardResolver) resolveDataURI(sourceRef string) (image.Image, error) {
	comma := strings.IndexByte(sourceRef, ',')
	if comma < 0 {
		return nil, &ResourceError{SourceRef: sourceRef, Err: fmt.Errorf("malformed data URI")}
	}
	meta, payload := sourceRef[len("data:"):comma], sourceRef[comma+1:]
	var raw []byte
	var err error
	if strings.HasSuffix(meta, ";base64") {
		raw, err = base64.StdEncoding.DecodeString(payload)
	} else {
		raw = []byte(payload)
	}
	if err != nil {
		return nil, &ResourceError{SourceRef: sourceRef, Err: err}
	}
	return r.decode(sourceRef, bytes.NewReader(raw))
}

func (r *StandardResolver) resolveURL(ctx context.Context, sourceRef string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceRef, nil)
	if err != nil {
		return nil, &ResourceError{SourceRef: sourceRef, Err: err}
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, &ResourceError{SourceRef: sourceRef, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &ResourceError{SourceRef: sourceRef, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	return r.decode(sourceRef, resp.Body)
}

func (r *StandardResolver) resolveFile(sourceRef string) (image.Image, error) {
	f, err := os.Open(sourceRef)
	if err != nil {
		return nil, &ResourceError{SourceRef: sourceRef, Err: err}
	}
	defer f.Close()
	return r.decode(sourceRef, f)
}

func (r *StandardResolver) decode(sourceRef string, src io.Reader) (image.Image, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, &ResourceError{SourceRef: sourceRef, Err: err}
	}
	return img, nil
}
