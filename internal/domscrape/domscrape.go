// Package domscrape normalizes rendered-DOM conversation snapshots for
// platforms without an interceptable JSON payload (DeepSeek, claude.ai
// fallback). Selector fallback chains and role-detection patterns are data,
// not control flow, so a platform's matching policy can be tuned and tested
// independently.
package domscrape

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/quillhq/convoexport/internal/record"
)

// SelectorRule is one step of a fallback chain: a CSS selector plus the
// minimum trimmed text length an element must have to count as a real
// message rather than a layout wrapper.
type SelectorRule struct {
	Selector   string
	MinTextLen int
}

// RoleRule classifies a message element. ClassTokens match whole class
// attribute tokens; Substrings match anywhere in the concatenation of class
// names and data-attribute values. Rules are tried in order.
type RoleRule struct {
	ClassTokens []string
	Substrings  []string
	Role        record.Role
}

// Scraper holds one platform's matching policy.
type Scraper struct {
	platform  record.Platform
	selectors []SelectorRule
	roles     []RoleRule
}

// NewDeepSeek returns a scraper tuned for the DeepSeek chat DOM. The chain
// starts with the markdown containers the app renders messages into and
// degrades toward generic chat-bubble heuristics.
func NewDeepSeek() *Scraper {
	return &Scraper{
		platform: record.PlatformDeepSeek,
		selectors: []SelectorRule{
			{Selector: `div.ds-user-message, div.ds-markdown`, MinTextLen: 1},
			{Selector: `div[class*="message"]`, MinTextLen: 2},
			{Selector: `div[class*="chat"] p`, MinTextLen: 10},
			{Selector: `main div`, MinTextLen: 40},
		},
		roles: []RoleRule{
			{ClassTokens: []string{"ds-user-message"}, Substrings: []string{"user", "human", "fa81"}, Role: record.RoleUser},
			{ClassTokens: []string{"ds-markdown"}, Substrings: []string{"assistant", "ds-markdown", "f9bf7997"}, Role: record.RoleAssistant},
		},
	}
}

// NewClaudeFallback returns a scraper for the claude.ai DOM, used when no
// network payload was captured for a conversation.
func NewClaudeFallback() *Scraper {
	return &Scraper{
		platform: record.PlatformClaude,
		selectors: []SelectorRule{
			{Selector: `div[data-testid="user-message"], div.font-claude-message`, MinTextLen: 1},
			{Selector: `div[class*="message"]`, MinTextLen: 2},
			{Selector: `main div p`, MinTextLen: 40},
		},
		roles: []RoleRule{
			{Substrings: []string{"user-message", "human-turn"}, Role: record.RoleUser},
			{Substrings: []string{"font-claude-message", "assistant"}, Role: record.RoleAssistant},
		},
	}
}

// Scrape parses an HTML snapshot and emits message records in document
// order. It fails only when the document yields no message elements on any
// selector of the chain.
func (s *Scraper) Scrape(htmlSrc, source string) ([]record.Message, error) {
	doc, err := html.Parse(strings.NewReader(htmlSrc))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	elements := s.selectElements(doc)
	if len(elements) == 0 {
		return nil, fmt.Errorf("no message elements matched")
	}

	msgs := make([]record.Message, 0, len(elements))
	for i, el := range elements {
		msgs = append(msgs, record.Message{
			ConversationID: source,
			Role:           s.classifyRole(el),
			Text:           BlockText(el),
			Timestamp:      timeAttr(el),
			Platform:       s.platform,
			Index:          i,
		})
	}
	return msgs, nil
}

// selectElements walks the fallback chain, stopping at the first selector
// that yields elements with enough real text. MatchAll returns matches in
// document order, which fixes the output order.
func (s *Scraper) selectElements(doc *html.Node) []*html.Node {
	for _, rule := range s.selectors {
		sel, err := cascadia.Compile(rule.Selector)
		if err != nil {
			continue
		}
		var kept []*html.Node
		for _, el := range sel.MatchAll(doc) {
			if len(strings.TrimSpace(BlockText(el))) >= rule.MinTextLen {
				kept = append(kept, el)
			}
		}
		if len(kept) > 0 {
			return innermost(kept)
		}
	}
	return nil
}

// innermost drops any kept element that contains another kept element. The
// generic fallback selectors match ancestor wrappers alongside the message
// elements nested in them; keeping the wrapper would emit the whole
// conversation again as one row.
func innermost(els []*html.Node) []*html.Node {
	set := make(map[*html.Node]bool, len(els))
	for _, el := range els {
		set[el] = true
	}

	var out []*html.Node
	for _, el := range els {
		if !hasKeptDescendant(el, set) {
			out = append(out, el)
		}
	}
	return out
}

func hasKeptDescendant(el *html.Node, set map[*html.Node]bool) bool {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if set[c] || hasKeptDescendant(c, set) {
			return true
		}
	}
	return false
}

func (s *Scraper) classifyRole(el *html.Node) record.Role {
	classes := attrVal(el, "class")
	sig := strings.ToLower(signature(el))

	for _, rule := range s.roles {
		for _, token := range rule.ClassTokens {
			for _, cls := range strings.Fields(classes) {
				if cls == token {
					return rule.Role
				}
			}
		}
	}
	for _, rule := range s.roles {
		for _, sub := range rule.Substrings {
			if strings.Contains(sig, strings.ToLower(sub)) {
				return rule.Role
			}
		}
	}
	return record.RoleAssistant
}

// signature concatenates class names and data-attribute values, the strings
// role heuristics match against.
func signature(el *html.Node) string {
	var parts []string
	for _, a := range el.Attr {
		if a.Key == "class" || strings.HasPrefix(a.Key, "data-") {
			parts = append(parts, a.Val)
		}
	}
	return strings.Join(parts, " ")
}

// BlockText flattens an element to text with newlines after block-level
// elements and line breaks, then collapses to non-empty trimmed lines.
func BlockText(el *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "br" || isBlock(n.Data)) {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.Data) {
			b.WriteString("\n")
		}
	}
	walk(el)

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "pre", "blockquote", "tr",
		"h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

// timeAttr returns the datetime of the first <time> descendant, if any.
func timeAttr(el *html.Node) string {
	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "time" {
			if v := attrVal(n, "datetime"); v != "" {
				found = v
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(el)
	return found
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
