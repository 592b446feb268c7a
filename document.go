package easel

import (
	"encoding/json"
)

// Document is the persisted shape of a canvas: the ordered object list
// (insertion order is display order) and the pan offset.
type Document struct {
	Objects          []DocObject `json:"objects"`
	ViewportPosition Vec2        `json:"viewportPosition"`
}

// DocObject is one persisted object. The two variants share the envelope:
// an image object carries imageUrl, a text object carries text plus its
// style fields.
//
//	Image: { id, imageUrl, x, y, scale }
//	Text:  { id, text, x, y, color, fontFamily, scale }
type DocObject struct {
	ID         string  `json:"id"`
	ImageURL   string  `json:"imageUrl,omitempty"`
	Text       string  `json:"text,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Scale      float64 `json:"scale"`
	Color      string  `json:"color,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
}

// EmptyDocument returns the default document served when nothing has been
// persisted yet.
func EmptyDocument() *Document {
	return &Document{Objects: []DocObject{}}
}

// ParseDocument decodes and validates document JSON. A missing or
// non-array objects field is a ValidationError; individual objects are
// not validated here so a single bad entry cannot reject the document
// (the loader skips them instead).
func ParseDocument(data []byte) (*Document, error) {
	var probe struct {
		Objects          json.RawMessage `json:"objects"`
		ViewportPosition Vec2            `json:"viewportPosition"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	// A literal null decodes into a nil slice without error, so it must
	// be rejected here alongside a missing key.
	if len(probe.Objects) == 0 || string(probe.Objects) == "null" {
		return nil, &ValidationError{Reason: "objects field is missing"}
	}
	var objects []DocObject
	if err := json.Unmarshal(probe.Objects, &objects); err != nil {
		return nil, &ValidationError{Reason: "objects is not an array"}
	}
	return &Document{Objects: objects, ViewportPosition: probe.ViewportPosition}, nil
}

// Marshal encodes the document to its wire JSON.
func (d *Document) Marshal() ([]byte, error) {
	if d.Objects == nil {
		d.Objects = []DocObject{}
	}
	return json.Marshal(d)
}

// validate checks the per-object required fields. Used by the loader to
// decide whether to skip an entry.
func (o *DocObject) validate() error {
	if o.ID == "" {
		return &ValidationError{Reason: "object is missing id"}
	}
	if o.ImageURL == "" && o.Text == "" {
		return &ValidationError{Reason: "object " + o.ID + " is neither image nor text"}
	}
	if o.Scale <= 0 {
		return &ValidationError{Reason: "object " + o.ID + " has non-positive scale"}
	}
	return nil
}

// toItem builds a live item from a persisted object. Image sources are
// not resolved here; the loader does that so it can skip failures.
func (o *DocObject) toItem() *Item {
	var it *Item
	if o.ImageURL != "" {
		it = NewImageItem(o.ImageURL)
	} else {
		it = NewTextItem(o.Text, o.Color, o.FontFamily)
	}
	it.ID = o.ID
	it.X = o.X
	it.Y = o.Y
	it.Scale = o.Scale
	return it
}

// itemToDoc converts a live item to its persisted shape.
func itemToDoc(it *Item) DocObject {
	o := DocObject{
		ID:    it.ID,
		X:     it.X,
		Y:     it.Y,
		Scale: it.Scale,
	}
	switch it.Type {
	case ItemTypeImage:
		o.ImageURL = it.SourceRef
	case ItemTypeText:
		o.Text = it.Content
		o.Color = it.Color
		o.FontFamily = it.FontFamily
	}
	return o
}
