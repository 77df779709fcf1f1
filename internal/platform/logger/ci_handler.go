package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ciEnvVars are copied onto every record when present, keyed by the attribute
// name they are logged under.
var ciEnvVars = map[string]string{
	"ci_provider":    "CI_PROVIDER",
	"ci_commit":      "GITHUB_SHA",
	"ci_ref":         "GITHUB_REF",
	"ci_run_id":      "GITHUB_RUN_ID",
	"ci_workflow":    "GITHUB_WORKFLOW",
	"ci_pipeline_id": "CI_PIPELINE_ID",
}

// IsCI reports whether the process runs in a CI environment.
func IsCI() bool {
	v := os.Getenv("CI")
	return v != "" && v != "false" && v != "0"
}

// CIHandler is a custom slog.Handler that adds CI environment metadata
// to log records.
type CIHandler struct {
	handler  slog.Handler
	metadata []slog.Attr
}

// NewCIHandler creates a new CIHandler that wraps a JSON handler writing to
// out, adding CI metadata to each log record.
func NewCIHandler(out io.Writer, opts *slog.HandlerOptions) *CIHandler {
	handlerOpts := &slog.HandlerOptions{}
	if opts != nil {
		copied := *opts
		handlerOpts = &copied
	}

	var metadata []slog.Attr
	for attr, env := range ciEnvVars {
		if v := os.Getenv(env); v != "" {
			metadata = append(metadata, slog.String(attr, v))
		}
	}

	return &CIHandler{
		handler:  slog.NewJSONHandler(out, handlerOpts),
		metadata: metadata,
	}
}

// Enabled implements the slog.Handler interface.
func (h *CIHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs implements the slog.Handler interface.
func (h *CIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CIHandler{handler: h.handler.WithAttrs(attrs), metadata: h.metadata}
}

// WithGroup implements the slog.Handler interface.
func (h *CIHandler) WithGroup(name string) slog.Handler {
	return &CIHandler{handler: h.handler.WithGroup(name), metadata: h.metadata}
}

// Handle implements the slog.Handler interface.
func (h *CIHandler) Handle(ctx context.Context, record slog.Record) error {
	enhanced := record.Clone()
	enhanced.AddAttrs(h.metadata...)
	return h.handler.Handle(ctx, enhanced)
}
