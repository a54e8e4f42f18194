// Package pipeline is the validate/dispatch layer: it takes one
// platform-tagged payload, runs the matching normalizer(s), and returns the
// named CSV files. It holds no state across calls and performs no I/O.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"github.com/quillhq/convoexport/internal/csvenc"
	"github.com/quillhq/convoexport/internal/domscrape"
	"github.com/quillhq/convoexport/internal/normalize"
	"github.com/quillhq/convoexport/internal/record"
)

// DefaultMaxPayloadBytes bounds the worst case from a single pathological
// conversation. Overridable via config.
const DefaultMaxPayloadBytes = 50 << 20

// Validation failure reasons, surfaced to the caller so the UI layer can
// distinguish "unsupported platform" from "no data to export".
const (
	ReasonUnsupportedPlatform = "unsupported_platform"
	ReasonEmptyPayload        = "empty_payload"
	ReasonPayloadTooLarge     = "payload_too_large"
	ReasonMissingStructure    = "missing_structure"
)

// ValidationError is terminal for a request: nothing partial is returned.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Reason, e.Detail)
}

// Pipeline dispatches payloads to normalizers and encodes the results.
type Pipeline struct {
	maxPayload int
	logger     *slog.Logger
}

func New(maxPayloadBytes int, logger *slog.Logger) *Pipeline {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = DefaultMaxPayloadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{maxPayload: maxPayloadBytes, logger: logger}
}

// Process converts one captured conversation into its CSV files. ChatGPT
// yields a metadata file and a messages file; the other platforms yield a
// single conversation file.
func (p *Pipeline) Process(platform string, payload json.RawMessage) ([]record.ExportFile, error) {
	plat, ok := record.ParsePlatform(platform)
	if !ok {
		return nil, &ValidationError{Reason: ReasonUnsupportedPlatform, Detail: platform}
	}
	if err := p.validatePayload(plat, payload); err != nil {
		return nil, err
	}

	switch plat {
	case record.PlatformChatGPT:
		return p.processChatGPT(payload)
	case record.PlatformClaude:
		// A claude capture is either the intercepted JSON payload or, when
		// interception missed, a rendered-DOM snapshot.
		if len(gjson.GetBytes(payload, "chat_messages").Array()) > 0 {
			return p.processFlat(payload, normalize.Claude, "claude_conversation", claudeHeader, claudeRow)
		}
		return p.processDOM(payload, domscrape.NewClaudeFallback(), "claude_conversation", string(record.PlatformClaude))
	case record.PlatformCopilot:
		return p.processFlat(payload, normalize.Copilot, "copilot_conversation", copilotHeader, copilotRow)
	case record.PlatformDeepSeek:
		return p.processDOM(payload, domscrape.NewDeepSeek(), "deepseek_conversation", string(record.PlatformDeepSeek))
	}
	return nil, &ValidationError{Reason: ReasonUnsupportedPlatform, Detail: platform}
}

func (p *Pipeline) validatePayload(plat record.Platform, payload json.RawMessage) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &ValidationError{Reason: ReasonEmptyPayload, Detail: "payload is empty"}
	}
	if len(payload) > p.maxPayload {
		return &ValidationError{
			Reason: ReasonPayloadTooLarge,
			Detail: fmt.Sprintf("%d bytes exceeds limit of %d", len(payload), p.maxPayload),
		}
	}
	if trimmed[0] != '{' {
		return &ValidationError{Reason: ReasonMissingStructure, Detail: "payload is not a JSON object"}
	}

	// Platform-specific required top-level structure, checked before any
	// normalizer runs. Absence is a validation failure, not a normalizer one.
	parsed := gjson.ParseBytes(trimmed)
	switch plat {
	case record.PlatformChatGPT:
		if !parsed.Get("mapping").IsObject() {
			return &ValidationError{Reason: ReasonMissingStructure, Detail: "missing mapping object"}
		}
	case record.PlatformClaude:
		if len(parsed.Get("chat_messages").Array()) == 0 && parsed.Get("html").String() == "" {
			return &ValidationError{Reason: ReasonMissingStructure, Detail: "missing non-empty chat_messages array or html snapshot"}
		}
	case record.PlatformCopilot:
		if arr := parsed.Get("messages"); !arr.IsArray() || len(arr.Array()) == 0 {
			return &ValidationError{Reason: ReasonMissingStructure, Detail: "missing non-empty messages array"}
		}
	case record.PlatformDeepSeek:
		if parsed.Get("html").String() == "" {
			return &ValidationError{Reason: ReasonMissingStructure, Detail: "missing html snapshot"}
		}
	}
	return nil
}

func (p *Pipeline) processChatGPT(payload json.RawMessage) ([]record.ExportFile, error) {
	msgs, warnings, err := normalize.ChatGPT(payload)
	if err != nil {
		return nil, &ValidationError{Reason: ReasonMissingStructure, Detail: err.Error()}
	}
	p.logWarnings(record.PlatformChatGPT, warnings)

	md, err := normalize.ChatGPTMetadata(payload)
	if err != nil {
		return nil, &ValidationError{Reason: ReasonMissingStructure, Detail: err.Error()}
	}

	metaCSV, err := csvenc.Encode(chatgptMetadataHeader, [][]string{chatgptMetadataRow(md)})
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	rows := make([][]string, len(msgs))
	for i, m := range msgs {
		rows[i] = chatgptMessageRow(m)
	}
	msgCSV, err := csvenc.Encode(chatgptMessageHeader, rows)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}

	short := shortID(md.ConversationID)
	return []record.ExportFile{
		{Filename: fmt.Sprintf("chatgpt_metadata_%s.csv", short), Content: metaCSV},
		{Filename: fmt.Sprintf("chatgpt_messages_%s.csv", short), Content: msgCSV},
	}, nil
}

func (p *Pipeline) processFlat(
	payload json.RawMessage,
	norm func(json.RawMessage) ([]record.Message, []string, error),
	prefix string,
	header []string,
	row func(record.Message) []string,
) ([]record.ExportFile, error) {
	msgs, warnings, err := norm(payload)
	if err != nil {
		return nil, &ValidationError{Reason: ReasonMissingStructure, Detail: err.Error()}
	}
	p.logWarnings(msgs[0].Platform, warnings)

	rows := make([][]string, len(msgs))
	for i, m := range msgs {
		rows[i] = row(m)
	}
	content, err := csvenc.Encode(header, rows)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}

	return []record.ExportFile{
		{Filename: fmt.Sprintf("%s_%s.csv", prefix, shortID(msgs[0].ConversationID)), Content: content},
	}, nil
}

func (p *Pipeline) processDOM(payload json.RawMessage, scraper *domscrape.Scraper, prefix, defaultSource string) ([]record.ExportFile, error) {
	parsed := gjson.ParseBytes(payload)
	source := parsed.Get("source").String()
	if source == "" {
		source = defaultSource
	}

	msgs, err := scraper.Scrape(parsed.Get("html").String(), source)
	if err != nil {
		return nil, &ValidationError{Reason: ReasonMissingStructure, Detail: err.Error()}
	}

	rows := make([][]string, len(msgs))
	for i, m := range msgs {
		rows[i] = domRow(m)
	}
	content, err := csvenc.Encode(domHeader, rows)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}

	return []record.ExportFile{
		{Filename: fmt.Sprintf("%s_%s.csv", prefix, shortID("")), Content: content},
	}, nil
}

func (p *Pipeline) logWarnings(plat record.Platform, warnings []string) {
	for _, w := range warnings {
		p.logger.Warn("extraction degraded", "platform", string(plat), "detail", w)
	}
}

// shortID picks the filename suffix: the first 8 characters of the
// conversation id, or a UTC timestamp when there is no id.
func shortID(convID string) string {
	if len(convID) >= 8 {
		return convID[:8]
	}
	if convID != "" {
		return convID
	}
	return time.Now().UTC().Format("20060102T150405")
}
