package inline

import (
	"context"

	"github.com/jprybylski/reaction/internal/registry"
)

type handler struct{}

func New() *handler             { return &handler{} }
func (h *handler) Name() string { return "inline" }

// Load returns the script stored in the config itself. A blank script is
// passed through; the runner decides what to do with it.
func (h *handler) Load(_ context.Context, src registry.Source) (string, error) {
	return src.Script, nil
}
