package pipeline

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/quillhq/convoexport/internal/csvenc"
)

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return verr.Reason
}

func TestProcess_UnsupportedPlatform(t *testing.T) {
	p := New(0, nil)
	_, err := p.Process("gemini", json.RawMessage(`{}`))
	if reasonOf(t, err) != ReasonUnsupportedPlatform {
		t.Errorf("reason = %v", err)
	}
}

func TestProcess_EmptyPayload(t *testing.T) {
	p := New(0, nil)
	for _, payload := range []json.RawMessage{nil, json.RawMessage(``), json.RawMessage(`null`)} {
		_, err := p.Process("claude", payload)
		if reasonOf(t, err) != ReasonEmptyPayload {
			t.Errorf("payload %q: reason = %v", payload, err)
		}
	}
}

func TestProcess_PayloadTooLarge(t *testing.T) {
	p := New(64, nil)
	big := `{"chat_messages":[{"uuid":"m1","sender":"human","text":"` + strings.Repeat("x", 100) + `"}]}`
	_, err := p.Process("claude", json.RawMessage(big))
	if reasonOf(t, err) != ReasonPayloadTooLarge {
		t.Errorf("reason = %v", err)
	}
}

func TestProcess_NotAnObject(t *testing.T) {
	p := New(0, nil)
	_, err := p.Process("claude", json.RawMessage(`[1,2,3]`))
	if reasonOf(t, err) != ReasonMissingStructure {
		t.Errorf("reason = %v", err)
	}
}

func TestProcess_MissingRequiredStructure(t *testing.T) {
	p := New(0, nil)
	cases := map[string]string{
		"chatgpt":  `{"conversation_id":"c1"}`,
		"claude":   `{"uuid":"c1","chat_messages":[]}`,
		"copilot":  `{"conversationId":"c1"}`,
		"deepseek": `{"url":"https://chat.deepseek.com"}`,
	}
	for platform, payload := range cases {
		_, err := p.Process(platform, json.RawMessage(payload))
		if reasonOf(t, err) != ReasonMissingStructure {
			t.Errorf("%s: reason = %v", platform, err)
		}
	}
}

func TestProcess_ChatGPTProducesTwoFiles(t *testing.T) {
	payload := json.RawMessage(`{
		"conversation_id": "conv-1234abcd",
		"title": "Greetings",
		"mapping": {
			"n1": {"id": "n1", "children": ["n2"], "message": {"id": "m1", "author": {"role": "user"}, "content": {"content_type": "text", "parts": ["Hi"]}}},
			"n2": {"id": "n2", "parent": "n1", "message": {"id": "m2", "author": {"role": "assistant"}, "content": {"content_type": "text", "parts": ["Hello"]}}}
		}
	}`)

	files, err := New(0, nil).Process("chatgpt", payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Filename != "chatgpt_metadata_conv-123.csv" {
		t.Errorf("metadata filename = %q", files[0].Filename)
	}
	if files[1].Filename != "chatgpt_messages_conv-123.csv" {
		t.Errorf("messages filename = %q", files[1].Filename)
	}

	for _, f := range files {
		if !strings.HasPrefix(f.Content, csvenc.BOM) {
			t.Errorf("%s missing BOM", f.Filename)
		}
	}

	lines := strings.Split(strings.TrimPrefix(files[1].Content, csvenc.BOM), "\n")
	wantHeader := "conversation_id,message_id,parent_id,author_role,content_type,text,create_time,model_slug,has_image,image_ids,status,end_turn,is_visually_hidden,tool_name"
	if lines[0] != wantHeader {
		t.Errorf("messages header = %q", lines[0])
	}
	if len(lines) != 4 { // header + 2 rows + trailing newline
		t.Fatalf("expected 2 message rows, got lines %q", lines)
	}

	metaLines := strings.Split(strings.TrimPrefix(files[0].Content, csvenc.BOM), "\n")
	if !strings.Contains(metaLines[1], "conv-1234abcd,Greetings") {
		t.Errorf("metadata row = %q", metaLines[1])
	}
	if !strings.Contains(metaLines[1], ",2,1,1,0,") {
		t.Errorf("metadata counts not present in %q", metaLines[1])
	}
}

func TestProcess_ClaudeEndToEnd(t *testing.T) {
	payload := json.RawMessage(`{
		"chat_messages": [{"uuid": "m1", "sender": "human", "content": [{"type": "text", "text": "Hi"}], "created_at": "2024-01-01T00:00:00Z"}],
		"uuid": "c1",
		"name": "Test"
	}`)

	files, err := New(0, nil).Process("claude", payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Filename != "claude_conversation_c1.csv" {
		t.Errorf("filename = %q", files[0].Filename)
	}

	lines := strings.Split(strings.TrimPrefix(files[0].Content, csvenc.BOM), "\n")
	wantHeader := "conversation_id,conversation_name,message_id,parent_message_id,sender,text,created_at,updated_at,index,truncated,stop_reason"
	if lines[0] != wantHeader {
		t.Errorf("header = %q", lines[0])
	}
	wantRow := "c1,Test,m1,,human,Hi,2024-01-01T00:00:00Z,,,,"
	if lines[1] != wantRow {
		t.Errorf("row = %q, want %q", lines[1], wantRow)
	}
}

func TestProcess_InjectionNeutralizedEndToEnd(t *testing.T) {
	payload := json.RawMessage(`{
		"uuid": "c1",
		"chat_messages": [{"uuid": "m1", "sender": "human", "text": "=1+1"}]
	}`)

	files, err := New(0, nil).Process("claude", payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(files[0].Content, "'=1+1") {
		t.Errorf("formula not neutralized: %q", files[0].Content)
	}
}

func TestProcess_Copilot(t *testing.T) {
	payload := json.RawMessage(`{
		"conversationId": "cp1",
		"messages": [
			{"id": "m1", "author": "human", "text": "Hi", "createdAt": "2024-02-02T10:00:00Z", "channel": "web", "mode": "chat"}
		]
	}`)

	files, err := New(0, nil).Process("copilot", payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if files[0].Filename != "copilot_conversation_cp1.csv" {
		t.Errorf("filename = %q", files[0].Filename)
	}

	lines := strings.Split(strings.TrimPrefix(files[0].Content, csvenc.BOM), "\n")
	if lines[0] != "conversation_id,message_id,role,text,created_at,channel,mode,part_ids,author_type" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "cp1,m1,user,Hi,2024-02-02T10:00:00Z,web,chat,,human" {
		t.Errorf("row = %q", lines[1])
	}
}

// A claude capture without intercepted JSON still exports from its rendered
// DOM snapshot, through the generic scrape table.
func TestProcess_ClaudeDOMFallback(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{
		"html": `<html><body>
			<div data-testid="user-message">My question</div>
			<div class="font-claude-message"><p>My answer</p></div>
		</body></html>`,
	})

	files, err := New(0, nil).Process("claude", payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if !strings.HasPrefix(files[0].Filename, "claude_conversation_") {
		t.Errorf("filename = %q", files[0].Filename)
	}

	lines := strings.Split(strings.TrimPrefix(files[0].Content, csvenc.BOM), "\n")
	if lines[0] != "index,role,timestamp,content,source" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0,user,,My question,claude" {
		t.Errorf("first row = %q", lines[1])
	}
	if lines[2] != "1,assistant,,My answer,claude" {
		t.Errorf("second row = %q", lines[2])
	}
}

func TestProcess_ClaudeSnapshotWithoutMessages(t *testing.T) {
	// Neither chat_messages nor html: terminal validation error.
	_, err := New(0, nil).Process("claude", json.RawMessage(`{"uuid":"c1"}`))
	if reasonOf(t, err) != ReasonMissingStructure {
		t.Errorf("reason = %v", err)
	}
}

func TestProcess_DeepSeekSnapshot(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{
		"source": "chat.deepseek.com",
		"html":   `<html><body><div class="ds-user-message">Hello DeepSeek</div></body></html>`,
	})

	files, err := New(0, nil).Process("deepseek", payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.HasPrefix(files[0].Filename, "deepseek_conversation_") {
		t.Errorf("filename = %q", files[0].Filename)
	}

	lines := strings.Split(strings.TrimPrefix(files[0].Content, csvenc.BOM), "\n")
	if lines[0] != "index,role,timestamp,content,source" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0,user,,Hello DeepSeek,chat.deepseek.com" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("conv-1234abcd"); got != "conv-123" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("c1"); got != "c1" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID(""); len(got) != len("20060102T150405") {
		t.Errorf("timestamp fallback = %q", got)
	}
}
