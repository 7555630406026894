package file

import (
	"context"
	"errors"
	"os"

	"github.com/jprybylski/reaction/internal/registry"
)

type handler struct{}

func New() *handler             { return &handler{} }
func (h *handler) Name() string { return "file" }

func (h *handler) Load(_ context.Context, src registry.Source) (string, error) {
	if src.Path == "" {
		return "", errors.New("file: missing source.path")
	}
	b, err := os.ReadFile(src.Path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
