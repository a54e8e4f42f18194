package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/quillhq/convoexport/internal/pipeline"
	"github.com/quillhq/convoexport/internal/store"
)

// Consumer stores incoming capture events and runs an export for each, so a
// capture published by the browser bridge lands in Postgres with its CSVs
// already validated.
type Consumer struct {
	client *Client
	store  *store.Store
	pipe   *pipeline.Pipeline
	logger *slog.Logger
}

func NewConsumer(client *Client, s *store.Store, pipe *pipeline.Pipeline, logger *slog.Logger) *Consumer {
	return &Consumer{client: client, store: s, pipe: pipe, logger: logger}
}

// Start subscribes to the capture subject tree.
func (c *Consumer) Start() error {
	return c.client.Subscribe(SubjectCaptureWildcard, c.handleCapture)
}

func (c *Consumer) handleCapture(subject string, data []byte) {
	ctx := context.Background()

	var evt CaptureEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		c.logger.Error("failed to parse capture event", "subject", subject, "error", err)
		return
	}
	if evt.Platform == "" {
		// capture.conversation.<platform> carries the platform in the subject.
		if i := strings.LastIndex(subject, "."); i >= 0 {
			evt.Platform = subject[i+1:]
		}
	}

	id, err := c.store.SaveCapture(ctx, evt.Platform, evt.Payload, evt.Source)
	if err != nil {
		c.logger.Error("failed to store capture", "platform", evt.Platform, "error", err)
		return
	}
	if err := c.client.Publish(SubjectCaptureStored, map[string]any{
		"capture_id": id.String(),
		"platform":   evt.Platform,
	}); err != nil {
		c.logger.Warn("failed to publish capture stored", "error", err)
	}

	files, err := c.pipe.Process(evt.Platform, evt.Payload)
	if err != nil {
		var verr *pipeline.ValidationError
		if errors.As(err, &verr) {
			c.logger.Warn("capture not exportable", "capture_id", id, "reason", verr.Reason, "detail", verr.Detail)
		} else {
			c.logger.Error("export failed", "capture_id", id, "error", err)
		}
		return
	}

	if _, err := c.store.RecordExport(ctx, id, len(files)); err != nil {
		c.logger.Error("failed to record export", "capture_id", id, "error", err)
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Filename
	}
	if err := c.client.Publish(SubjectExportCompleted, map[string]any{
		"capture_id": id.String(),
		"platform":   evt.Platform,
		"files":      names,
	}); err != nil {
		c.logger.Warn("failed to publish export completed", "error", err)
	}

	c.logger.Info("capture exported", "capture_id", id, "platform", evt.Platform, "files", len(files))
}
