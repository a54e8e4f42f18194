// Package exportfile runs the pipeline over a payload file on disk, for use
// without the daemon: one JSON conversation in, CSV files out.
package exportfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/quillhq/convoexport/internal/pipeline"
)

// Config holds the file-mode settings.
type Config struct {
	InputPath string
	Platform  string
	OutDir    string
}

type Runner struct {
	cfg    Config
	pipe   *pipeline.Pipeline
	logger *slog.Logger
}

func NewRunner(cfg Config, pipe *pipeline.Pipeline, logger *slog.Logger) *Runner {
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	return &Runner{cfg: cfg, pipe: pipe, logger: logger}
}

// Run reads the payload, exports it, and writes the resulting files.
func (r *Runner) Run() error {
	payload, err := os.ReadFile(r.cfg.InputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	files, err := r.pipe.Process(r.cfg.Platform, payload)
	if err != nil {
		return fmt.Errorf("export %s: %w", r.cfg.InputPath, err)
	}

	if err := os.MkdirAll(r.cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, f := range files {
		path := filepath.Join(r.cfg.OutDir, f.Filename)
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		r.logger.Info("wrote export", "file", path, "bytes", len(f.Content))
	}

	return nil
}
