// Package server exposes the persistence and generation collaborators
// over HTTP: GET/POST /api/document against a document store, and
// POST /api/generate proxied to an upstream image-generation API.
package server

import (
	"errors"
	"io"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/phanxgames/easel"
	"github.com/phanxgames/easel/store"
)

// maxDocumentBytes bounds POSTed document bodies. Embedded data URIs make
// documents large, so the cap is generous.
const maxDocumentBytes = 64 << 20

// New builds the HTTP router. gen may be nil, in which case the generate
// endpoint reports that no upstream is configured.
func New(st store.Store, gen *GenerateProxy) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/document", HandleGetDocument(st))
	r.Post("/api/document", HandlePostDocument(st))
	r.Post("/api/generate", HandleGenerate(gen))
	return r
}

// HandleGetDocument serves the persisted document, or an empty default
// document when nothing has been saved yet.
func HandleGetDocument(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := st.Load(r.Context())
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				render.JSON(w, r, easel.EmptyDocument())
				return
			}
			logrus.WithError(err).Error("Failed to load document")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "failed to load document"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

// HandlePostDocument validates and stores a document. A body whose
// objects field is missing or not an array is rejected with 400; a store
// failure is 500.
func HandlePostDocument(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentBytes))
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "failed to read request body"})
			return
		}
		defer r.Body.Close()

		if _, err := easel.ParseDocument(body); err != nil {
			logrus.WithError(err).Warn("Rejected invalid document")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}

		if err := st.Save(r.Context(), body); err != nil {
			logrus.WithError(err).Error("Failed to save document")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "failed to save document"})
			return
		}
		render.JSON(w, r, map[string]bool{"success": true})
	}
}
