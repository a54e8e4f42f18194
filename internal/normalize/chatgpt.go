// Package normalize converts per-platform conversation payloads into ordered
// record.Message sequences. Each normalizer is pure: it takes the raw payload
// once, never mutates it, and reports per-item problems as warnings instead
// of failing the conversation.
package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/quillhq/convoexport/internal/extract"
	"github.com/quillhq/convoexport/internal/record"
)

// chatgptPayload is the top level of a ChatGPT conversation object. The
// mapping is a parent-pointer graph keyed by node id, not an ordered list.
type chatgptPayload struct {
	ConversationID   string                 `json:"conversation_id"`
	ID               string                 `json:"id"`
	Title            string                 `json:"title"`
	CreateTime       *float64               `json:"create_time"`
	UpdateTime       *float64               `json:"update_time"`
	DefaultModelSlug string                 `json:"default_model_slug"`
	MemoryScope      string                 `json:"memory_scope"`
	IsDoNotRemember  *bool                  `json:"is_do_not_remember"`
	Mapping          map[string]chatgptNode `json:"mapping"`
}

type chatgptNode struct {
	ID       string          `json:"id"`
	Parent   string          `json:"parent"`
	Children []string        `json:"children"`
	Message  json.RawMessage `json:"message"`
}

type chatgptMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
		Name string `json:"name"`
	} `json:"author"`
	CreateTime *float64        `json:"create_time"`
	Content    json.RawMessage `json:"content"`
	Status     string          `json:"status"`
	EndTurn    *bool           `json:"end_turn"`
	Recipient  string          `json:"recipient"`
	Metadata   json.RawMessage `json:"metadata"`
}

// ChatGPT walks the node mapping from its roots and emits one message record
// per non-context node, parent pointers preserved. Key iteration order of the
// mapping is meaningless, so turn order is reconstructed from the graph:
// roots first, children in their declared order (create_time as tie-break
// when the children list is absent), unreachable orphans appended last by
// create_time.
func ChatGPT(raw json.RawMessage) ([]record.Message, []string, error) {
	var p chatgptPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, nil, fmt.Errorf("parse conversation: %w", err)
	}
	if len(p.Mapping) == 0 {
		return nil, nil, fmt.Errorf("conversation has no mapping")
	}

	convID := p.ConversationID
	if convID == "" {
		convID = p.ID
	}

	var warnings []string
	var msgs []record.Message
	index := 0
	for _, nodeID := range orderNodes(p.Mapping) {
		node := p.Mapping[nodeID]
		if len(node.Message) == 0 || string(node.Message) == "null" {
			continue
		}

		var m chatgptMessage
		if err := json.Unmarshal(node.Message, &m); err != nil {
			warnings = append(warnings, fmt.Sprintf("node %s: unreadable message, skipped", nodeID))
			continue
		}

		res := extract.Text(m.Content)
		if res.ContextOnly {
			continue
		}

		meta := gjson.ParseBytes(m.Metadata)

		msg := record.Message{
			ConversationID: convID,
			MessageID:      m.ID,
			ParentID:       node.Parent,
			Role:           record.MapRole(m.Author.Role),
			RawRole:        m.Author.Role,
			ContentType:    res.ContentType,
			Text:           res.Text,
			Timestamp:      epochToISO(m.CreateTime),
			Platform:       record.PlatformChatGPT,
			Index:          index,
			ModelSlug:      meta.Get("model_slug").String(),
			HasImage:       res.HasImage,
			ImageIDs:       res.ImageIDs,
			Status:         m.Status,
			IsHidden:       meta.Get("is_visually_hidden_from_conversation").Bool(),
		}
		if m.EndTurn != nil {
			msg.EndTurn = strconv.FormatBool(*m.EndTurn)
		}
		if m.Author.Role == "tool" {
			msg.ToolName = m.Author.Name
		}

		msgs = append(msgs, msg)
		index++
	}

	return msgs, warnings, nil
}

// orderNodes reconstructs conversation order from the parent-pointer graph.
func orderNodes(mapping map[string]chatgptNode) []string {
	// Roots: no parent, or parent missing from the mapping.
	var roots []string
	childIndex := make(map[string][]string, len(mapping))
	for id, node := range mapping {
		if node.Parent == "" {
			roots = append(roots, id)
			continue
		}
		if _, ok := mapping[node.Parent]; !ok {
			roots = append(roots, id)
			continue
		}
		childIndex[node.Parent] = append(childIndex[node.Parent], id)
	}
	sort.Slice(roots, func(i, j int) bool {
		return nodeTime(mapping[roots[i]]) < nodeTime(mapping[roots[j]])
	})

	visited := make(map[string]bool, len(mapping))
	var ordered []string
	var walk func(id string)
	walk = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		ordered = append(ordered, id)

		node := mapping[id]
		children := node.Children
		if len(children) == 0 {
			children = childIndex[id]
			sort.Slice(children, func(i, j int) bool {
				return nodeTime(mapping[children[i]]) < nodeTime(mapping[children[j]])
			})
		}
		for _, child := range children {
			if _, ok := mapping[child]; ok {
				walk(child)
			}
		}
	}
	for _, root := range roots {
		walk(root)
	}

	// Orphans unreachable from any root (cycles, dangling subtrees).
	if len(ordered) < len(mapping) {
		var rest []string
		for id := range mapping {
			if !visited[id] {
				rest = append(rest, id)
			}
		}
		sort.Slice(rest, func(i, j int) bool {
			if ti, tj := nodeTime(mapping[rest[i]]), nodeTime(mapping[rest[j]]); ti != tj {
				return ti < tj
			}
			return rest[i] < rest[j]
		})
		ordered = append(ordered, rest...)
	}

	return ordered
}

func nodeTime(node chatgptNode) float64 {
	if len(node.Message) == 0 {
		return 0
	}
	return gjson.GetBytes(node.Message, "create_time").Float()
}

// epochToISO renders a unix timestamp (possibly fractional) as RFC 3339 UTC.
func epochToISO(epoch *float64) string {
	if epoch == nil || *epoch == 0 {
		return ""
	}
	sec := int64(*epoch)
	nsec := int64((*epoch - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC().Format(time.RFC3339)
}
