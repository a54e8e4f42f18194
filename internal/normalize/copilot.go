package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quillhq/convoexport/internal/record"
)

// copilotPayload is a Microsoft Copilot conversation: a flat ordered message
// array where each message is assembled from typed parts.
type copilotPayload struct {
	ConversationID string           `json:"conversationId"`
	ID             string           `json:"id"`
	Messages       []copilotMessage `json:"messages"`
}

type copilotMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
	Channel   string `json:"channel"`
	Mode      string `json:"mode"`
	Parts     []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Copilot iterates messages in given order. Text prefers the flat text field;
// otherwise text-typed content parts are joined with newlines. Part ids are
// surfaced regardless of part type so non-text parts stay referenceable.
func Copilot(raw json.RawMessage) ([]record.Message, []string, error) {
	var p copilotPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil, fmt.Errorf("parse conversation: %w", err)
	}
	if len(p.Messages) == 0 {
		return nil, nil, fmt.Errorf("conversation has no messages")
	}

	convID := p.ConversationID
	if convID == "" {
		convID = p.ID
	}

	msgs := make([]record.Message, 0, len(p.Messages))
	for i, m := range p.Messages {
		text := m.Text
		var partIDs []string
		var partTexts []string
		for _, part := range m.Parts {
			if part.ID != "" {
				partIDs = append(partIDs, part.ID)
			}
			if part.Type == "text" && part.Text != "" {
				partTexts = append(partTexts, part.Text)
			}
		}
		if text == "" {
			text = strings.Join(partTexts, "\n")
		}

		role := m.Role
		if role == "" {
			role = m.Author
		}

		msgs = append(msgs, record.Message{
			ConversationID: convID,
			MessageID:      m.ID,
			Role:           record.MapRole(role),
			RawRole:        role,
			Text:           text,
			Timestamp:      m.CreatedAt,
			Platform:       record.PlatformCopilot,
			Index:          i,
			Channel:        m.Channel,
			Mode:           m.Mode,
			PartIDs:        partIDs,
			AuthorType:     m.Author,
		})
	}

	return msgs, nil, nil
}
