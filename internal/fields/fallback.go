package fields

import (
	"context"
	"log/slog"

	"github.com/procure-ops/threeway/constants"
)

// WithFallback runs a primary extractor and silently falls back to a
// secondary one on any failure. The external strategy is never required for
// correctness; wrapping it this way keeps it a pure substitute.
type WithFallback struct {
	primary  Extractor
	fallback Extractor
	logger   *slog.Logger
}

func NewWithFallback(primary, fallback Extractor, logger *slog.Logger) *WithFallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &WithFallback{primary: primary, fallback: fallback, logger: logger}
}

func (w *WithFallback) ExtractFields(ctx context.Context, text string, kind constants.DocType) (Record, error) {
	rec, err := w.primary.ExtractFields(ctx, text, kind)
	if err == nil {
		return rec, nil
	}
	w.logger.Warn("fields.fallback", "kind", kind, "error", err)
	return w.fallback.ExtractFields(ctx, text, kind)
}
