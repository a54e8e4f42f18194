// Package extract pulls plain text out of the per-platform content unions.
// Every function here is total over arbitrary JSON: malformed or unknown
// content degrades to empty text, it never fails the caller.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Known content-type tags of the ChatGPT content union.
const (
	TypeText                 = "text"
	TypeMultimodal           = "multimodal_text"
	TypeThoughts             = "thoughts"
	TypeCode                 = "code"
	TypeExecutionOutput      = "execution_output"
	TypeToolOutput           = "tool_output"
	TypeReasoningRecap       = "reasoning_recap"
	TypeUserEditableContext  = "user_editable_context"
	TypeModelEditableContext = "model_editable_context"
)

// Result is the outcome of extracting one message's content.
type Result struct {
	ContentType string
	Text        string
	ContextOnly bool // user/model_editable_context: feeds metadata, not a row
	HasImage    bool
	ImageIDs    []string
}

// content mirrors the fields the union variants can carry. Which fields are
// meaningful depends on ContentType.
type content struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
	Thoughts    []thought         `json:"thoughts"`
	Text        string            `json:"text"`
	Content     string            `json:"content"`
}

type thought struct {
	Summary string `json:"summary"`
	Content string `json:"content"`
}

// multimodal parts are either raw strings or tagged objects.
type part struct {
	ContentType  string `json:"content_type"`
	Text         string `json:"text"`
	AssetPointer string `json:"asset_pointer"`
}

// Text extracts the display text from a ChatGPT-style content object.
func Text(raw json.RawMessage) Result {
	if len(raw) == 0 {
		return Result{}
	}

	var c content
	if err := json.Unmarshal(raw, &c); err != nil {
		return fallback(raw, "")
	}

	switch c.ContentType {
	case TypeText:
		return Result{ContentType: c.ContentType, Text: joinStringParts(c.Parts)}

	case TypeMultimodal:
		return multimodalText(c)

	case TypeThoughts:
		texts := make([]string, 0, len(c.Thoughts))
		for _, th := range c.Thoughts {
			texts = append(texts, th.Content)
		}
		return Result{ContentType: c.ContentType, Text: strings.Join(texts, "\n\n")}

	case TypeCode:
		return Result{ContentType: c.ContentType, Text: c.Text}

	case TypeExecutionOutput, TypeToolOutput:
		// Dedicated output field, verbatim.
		return Result{ContentType: c.ContentType, Text: c.Text}

	case TypeReasoningRecap:
		return Result{ContentType: c.ContentType, Text: c.Content}

	case TypeUserEditableContext, TypeModelEditableContext:
		return Result{ContentType: c.ContentType, ContextOnly: true}
	}

	return fallback(raw, c.ContentType)
}

func multimodalText(c content) Result {
	res := Result{ContentType: c.ContentType}
	var texts []string
	for _, raw := range c.Parts {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			texts = append(texts, s)
			continue
		}
		var p part
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		switch {
		case p.ContentType == TypeText:
			texts = append(texts, p.Text)
		case p.ContentType == "" && p.Text != "":
			// Untagged object parts with a text body are kept; tagged
			// non-text parts (audio transcriptions etc.) are not.
			texts = append(texts, p.Text)
		case p.AssetPointer != "":
			res.HasImage = true
			res.ImageIDs = append(res.ImageIDs, p.AssetPointer)
		}
	}
	res.Text = strings.Join(texts, "\n")
	return res
}

// fallback handles unrecognized tags: a generic free-text field if present,
// else any string items of a parts list, else empty.
func fallback(raw json.RawMessage, tag string) Result {
	res := Result{ContentType: tag}
	parsed := gjson.ParseBytes(raw)

	if t := parsed.Get("text"); t.Type == gjson.String && t.Str != "" {
		res.Text = t.Str
		return res
	}

	var texts []string
	for _, item := range parsed.Get("parts").Array() {
		if item.Type == gjson.String {
			texts = append(texts, item.Str)
		}
	}
	res.Text = strings.Join(texts, "\n")
	return res
}

func joinStringParts(parts []json.RawMessage) string {
	texts := make([]string, 0, len(parts))
	for _, raw := range parts {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			texts = append(texts, s)
		}
	}
	return strings.Join(texts, "\n")
}

// Blocks extracts text from a Claude-style content value: either a plain
// string or an array of typed blocks. Non-text blocks (thinking, tool_use,
// tool_result) contribute nothing to the text column.
func Blocks(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	var text string
	for _, b := range blocks {
		if b.Type != "text" || b.Text == "" {
			continue
		}
		if text != "" {
			text += "\n"
		}
		text += b.Text
	}
	return text
}
