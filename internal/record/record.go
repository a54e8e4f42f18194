// Package record defines the canonical row types shared by all platform
// normalizers: one Message per chat turn, one ConversationMetadata per
// conversation, and the named CSV files the pipeline hands back to callers.
package record

// Platform identifies which chat product a payload was captured from.
type Platform string

const (
	PlatformChatGPT  Platform = "chatgpt"
	PlatformClaude   Platform = "claude"
	PlatformCopilot  Platform = "copilot"
	PlatformDeepSeek Platform = "deepseek"
)

// ParsePlatform maps a wire identifier to a known platform.
func ParsePlatform(s string) (Platform, bool) {
	switch Platform(s) {
	case PlatformChatGPT, PlatformClaude, PlatformCopilot, PlatformDeepSeek:
		return Platform(s), true
	}
	return "", false
}

// Role is the normalized author role of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleOther     Role = "other"
)

// MapRole normalizes a platform-specific author token. Unknown non-empty
// tokens map to RoleOther rather than failing the record.
func MapRole(token string) Role {
	switch token {
	case "user", "human":
		return RoleUser
	case "assistant", "ai", "bot":
		return RoleAssistant
	case "system":
		return RoleSystem
	case "tool", "function":
		return RoleTool
	}
	return RoleOther
}

// Message is one normalized chat turn. ConversationID, Role, Text and
// Platform are filled for every platform; the rest are populated only where
// the source schema carries them and serialize to empty CSV cells otherwise.
type Message struct {
	ConversationID string
	MessageID      string
	ParentID       string
	Role           Role
	RawRole        string // the platform's own token, e.g. "human"
	ContentType    string
	Text           string
	Timestamp      string // ISO-8601 or empty
	Platform       Platform
	Index          int

	// ChatGPT extras.
	ModelSlug string
	ToolName  string
	HasImage  bool
	ImageIDs  []string
	Status    string
	EndTurn   string // "true"/"false"/"" — tri-state in the source
	IsHidden  bool

	// Claude extras.
	ConversationName string
	UpdatedAt        string
	SourceIndex      string // the payload's own index field, empty when absent
	Truncated        string // "true"/"false"/"" — absent serializes empty
	StopReason       string

	// Copilot extras.
	Channel    string
	Mode       string
	PartIDs    []string
	AuthorType string
}

// ConversationMetadata is the one-row summary table emitted alongside the
// message table for platforms that define one (ChatGPT).
type ConversationMetadata struct {
	ConversationID   string
	Title            string
	CreateTime       string
	UpdateTime       string
	DefaultModelSlug string
	MemoryScope      string
	IsDoNotRemember  string
	NumMessages      int
	NumUser          int
	NumAssistant     int
	NumTool          int
	UserProfile      string
	UserInstructions string
}

// ExportFile is one named CSV artifact, content includes the UTF-8 BOM.
type ExportFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}
