package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jprybylski/reaction/internal/registry"
)

// maxScriptBytes caps the size of a downloaded script.
const maxScriptBytes = 1 << 20

type handler struct{ client *http.Client }

func New() *handler             { return &handler{client: &http.Client{Timeout: 60 * time.Second}} }
func (h *handler) Name() string { return "http" }

func (h *handler) Load(ctx context.Context, src registry.Source) (string, error) {
	if src.URL == "" {
		return "", errors.New("http: missing source.url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("http GET %s: %s", src.URL, resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes+1))
	if err != nil {
		return "", err
	}
	if len(b) > maxScriptBytes {
		return "", fmt.Errorf("http GET %s: script larger than %d bytes", src.URL, maxScriptBytes)
	}
	return string(b), nil
}
