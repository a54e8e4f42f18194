package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/quillhq/convoexport/internal/extract"
	"github.com/quillhq/convoexport/internal/record"
)

// claudePayload is a claude.ai conversation: a flat ordered message array,
// array order is conversation order.
type claudePayload struct {
	UUID         string          `json:"uuid"`
	Name         string          `json:"name"`
	ChatMessages []claudeMessage `json:"chat_messages"`
}

type claudeMessage struct {
	UUID              string          `json:"uuid"`
	ParentMessageUUID string          `json:"parent_message_uuid"`
	Sender            string          `json:"sender"`
	Text              string          `json:"text"`
	Content           json.RawMessage `json:"content"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
	Index             *int            `json:"index"`
	Truncated         *bool           `json:"truncated"`
	StopReason        string          `json:"stop_reason"`
}

// Claude iterates chat_messages in given order. Text comes from the content
// block array when present, falling back to the flat text field older
// payloads carry.
func Claude(raw json.RawMessage) ([]record.Message, []string, error) {
	var p claudePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil, fmt.Errorf("parse conversation: %w", err)
	}
	if len(p.ChatMessages) == 0 {
		return nil, nil, fmt.Errorf("conversation has no chat_messages")
	}

	msgs := make([]record.Message, 0, len(p.ChatMessages))
	for i, m := range p.ChatMessages {
		text := extract.Blocks(m.Content)
		if text == "" {
			text = m.Text
		}

		msg := record.Message{
			ConversationID:   p.UUID,
			ConversationName: p.Name,
			MessageID:        m.UUID,
			ParentID:         m.ParentMessageUUID,
			Role:             record.MapRole(m.Sender),
			RawRole:          m.Sender,
			Text:             text,
			Timestamp:        m.CreatedAt,
			UpdatedAt:        m.UpdatedAt,
			StopReason:       m.StopReason,
			Platform:         record.PlatformClaude,
			Index:            i,
		}
		if m.Index != nil {
			msg.SourceIndex = strconv.Itoa(*m.Index)
		}
		if m.Truncated != nil {
			msg.Truncated = strconv.FormatBool(*m.Truncated)
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil, nil
}
