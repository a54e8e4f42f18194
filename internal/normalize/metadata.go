package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/quillhq/convoexport/internal/extract"
	"github.com/quillhq/convoexport/internal/record"
)

// ChatGPTMetadata computes the one-row conversation summary: role counts over
// the same mapping the message normalizer walks, top-level conversation
// fields, and best-effort discovery of cross-cutting values (model slug may
// live on any message's metadata block, profile/instructions on a dedicated
// context node).
func ChatGPTMetadata(raw json.RawMessage) (record.ConversationMetadata, error) {
	var p chatgptPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return record.ConversationMetadata{}, fmt.Errorf("parse conversation: %w", err)
	}
	if len(p.Mapping) == 0 {
		return record.ConversationMetadata{}, fmt.Errorf("conversation has no mapping")
	}

	convID := p.ConversationID
	if convID == "" {
		convID = p.ID
	}

	md := record.ConversationMetadata{
		ConversationID:   convID,
		Title:            p.Title,
		CreateTime:       epochToISO(p.CreateTime),
		UpdateTime:       epochToISO(p.UpdateTime),
		DefaultModelSlug: p.DefaultModelSlug,
		MemoryScope:      p.MemoryScope,
	}
	if p.IsDoNotRemember != nil {
		md.IsDoNotRemember = strconv.FormatBool(*p.IsDoNotRemember)
	}

	// Counts and cross-cutting fields come from a full scan of the mapping.
	// Context-only nodes are excluded from every count, matching the rows the
	// message normalizer emits.
	for _, nodeID := range orderNodes(p.Mapping) {
		node := p.Mapping[nodeID]
		if len(node.Message) == 0 || string(node.Message) == "null" {
			continue
		}

		var m chatgptMessage
		if err := json.Unmarshal(node.Message, &m); err != nil {
			continue
		}

		res := extract.Text(m.Content)
		if res.ContextOnly {
			if res.ContentType == extract.TypeUserEditableContext {
				md.UserProfile, md.UserInstructions = userContext(m.Content)
			}
			continue
		}

		md.NumMessages++
		switch record.MapRole(m.Author.Role) {
		case record.RoleUser:
			md.NumUser++
		case record.RoleAssistant:
			md.NumAssistant++
		case record.RoleTool:
			md.NumTool++
		}

		// First model slug wins.
		if md.DefaultModelSlug == "" {
			if slug := gjson.GetBytes(m.Metadata, "model_slug").String(); slug != "" {
				md.DefaultModelSlug = slug
			}
		}
	}

	return md, nil
}

// userContext pulls profile and instructions from a user_editable_context
// content object. The clean pre-extracted fields are preferred; when only the
// raw template string is present, the backtick-fenced sections are parsed out
// of it.
func userContext(raw json.RawMessage) (profile, instructions string) {
	parsed := gjson.ParseBytes(raw)

	profile = parsed.Get("user_profile").String()
	instructions = parsed.Get("user_instructions").String()

	if profile == "" && instructions == "" {
		text := parsed.Get("text").String()
		fenced := fencedSections(text)
		if len(fenced) > 0 {
			profile = fenced[0]
		}
		if len(fenced) > 1 {
			instructions = fenced[1]
		}
	}
	return profile, instructions
}

// fencedSections returns the contents of ```-fenced blocks in order.
func fencedSections(s string) []string {
	var sections []string
	for {
		start := strings.Index(s, "```")
		if start < 0 {
			return sections
		}
		s = s[start+3:]
		end := strings.Index(s, "```")
		if end < 0 {
			return sections
		}
		sections = append(sections, strings.TrimSpace(s[:end]))
		s = s[end+3:]
	}
}
