package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/phanxgames/easel"
)

// GenerateProxy forwards generation requests to an upstream image API,
// attaching the server-held credential so the key never reaches clients.
type GenerateProxy struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// GenerateProxyFromEnv builds a proxy from GENERATE_BASE_URL and
// GENERATE_API_KEY. Returns nil (endpoint disabled) when no base URL is
// configured.
func GenerateProxyFromEnv() *GenerateProxy {
	baseURL := os.Getenv("GENERATE_BASE_URL")
	if baseURL == "" {
		logrus.Warn("GENERATE_BASE_URL not set; image generation disabled")
		return nil
	}
	return &GenerateProxy{
		BaseURL: baseURL,
		APIKey:  os.Getenv("GENERATE_API_KEY"),
		Client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// HandleGenerate validates the request shape and proxies it upstream.
// Failures come back as {error} with a non-2xx status; the client keeps
// its input for retry.
func HandleGenerate(proxy *GenerateProxy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if proxy == nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "image generation is not configured on the server"})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "failed to read request body"})
			return
		}
		defer r.Body.Close()

		var req easel.GenerateRequest
		if err := json.Unmarshal(body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "invalid JSON in request body"})
			return
		}
		if req.Prompt == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "prompt is required"})
			return
		}
		if req.Intent != easel.IntentCreate && req.Intent != easel.IntentUpdate {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "intent must be \"create\" or \"update\""})
			return
		}

		proxyReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost,
			proxy.BaseURL+"/v1/images/generate", bytes.NewReader(body))
		if err != nil {
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "failed to create upstream request"})
			return
		}
		if proxy.APIKey != "" {
			proxyReq.Header.Set("Authorization", "Bearer "+proxy.APIKey)
		}
		proxyReq.Header.Set("Content-Type", "application/json")
		proxyReq.Header.Set("Accept", "application/json")

		resp, err := proxy.Client.Do(proxyReq)
		if err != nil {
			logrus.WithError(err).Error("Upstream generation request failed")
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, map[string]string{"error": "failed to reach the generation API"})
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
	}
}
