package pipeline

import (
	"strconv"
	"strings"

	"github.com/quillhq/convoexport/internal/record"
)

// Fixed column sets. Order is part of the file contract; callers comparing
// exports across versions depend on it byte-for-byte.

var chatgptMetadataHeader = []string{
	"conversation_id", "title", "create_time", "update_time",
	"default_model_slug", "memory_scope", "is_do_not_remember",
	"num_messages", "num_user_messages", "num_assistant_messages",
	"num_tool_messages", "user_profile", "user_instructions",
}

// The full ChatGPT message schema: parent pointers and image references are
// load-bearing for the graph shape, so the simplified seven-column set is
// not emitted.
var chatgptMessageHeader = []string{
	"conversation_id", "message_id", "parent_id", "author_role",
	"content_type", "text", "create_time", "model_slug",
	"has_image", "image_ids", "status", "end_turn",
	"is_visually_hidden", "tool_name",
}

var claudeHeader = []string{
	"conversation_id", "conversation_name", "message_id", "parent_message_id",
	"sender", "text", "created_at", "updated_at", "index", "truncated",
	"stop_reason",
}

var copilotHeader = []string{
	"conversation_id", "message_id", "role", "text", "created_at",
	"channel", "mode", "part_ids", "author_type",
}

var domHeader = []string{"index", "role", "timestamp", "content", "source"}

func chatgptMetadataRow(md record.ConversationMetadata) []string {
	return []string{
		md.ConversationID,
		md.Title,
		md.CreateTime,
		md.UpdateTime,
		md.DefaultModelSlug,
		md.MemoryScope,
		md.IsDoNotRemember,
		strconv.Itoa(md.NumMessages),
		strconv.Itoa(md.NumUser),
		strconv.Itoa(md.NumAssistant),
		strconv.Itoa(md.NumTool),
		md.UserProfile,
		md.UserInstructions,
	}
}

func chatgptMessageRow(m record.Message) []string {
	return []string{
		m.ConversationID,
		m.MessageID,
		m.ParentID,
		m.RawRole,
		m.ContentType,
		m.Text,
		m.Timestamp,
		m.ModelSlug,
		strconv.FormatBool(m.HasImage),
		strings.Join(m.ImageIDs, ";"),
		m.Status,
		m.EndTurn,
		boolCell(m.IsHidden),
		m.ToolName,
	}
}

func claudeRow(m record.Message) []string {
	return []string{
		m.ConversationID,
		m.ConversationName,
		m.MessageID,
		m.ParentID,
		m.RawRole,
		m.Text,
		m.Timestamp,
		m.UpdatedAt,
		m.SourceIndex,
		m.Truncated,
		m.StopReason,
	}
}

func copilotRow(m record.Message) []string {
	return []string{
		m.ConversationID,
		m.MessageID,
		string(m.Role),
		m.Text,
		m.Timestamp,
		m.Channel,
		m.Mode,
		strings.Join(m.PartIDs, ";"),
		m.AuthorType,
	}
}

func domRow(m record.Message) []string {
	return []string{
		strconv.Itoa(m.Index),
		string(m.Role),
		m.Timestamp,
		m.Text,
		m.ConversationID,
	}
}

// boolCell renders false as empty: the column is a flag, absent by default.
func boolCell(v bool) string {
	if v {
		return "true"
	}
	return ""
}
