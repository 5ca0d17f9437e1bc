// Package convert renders stored messages in the wire formats of common
// client SDKs, so a session can be exported straight into an LLM call.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	cerrors "contextd/internal/errors"
	"contextd/internal/model"
)

// Format selects an export encoding for listed messages.
type Format string

const (
	FormatNone      Format = ""
	FormatOpenAI    Format = "openai"
	FormatLangChain Format = "langchain"
)

// ParseFormat validates a format query value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatNone, FormatOpenAI, FormatLangChain:
		return Format(s), nil
	default:
		return FormatNone, fmt.Errorf("unsupported format %q: %w", s, cerrors.ErrInvalidInput)
	}
}

// OpenAIMessage is one entry of an OpenAI chat-completions messages array.
// Content is a string for plain text and []OpenAIContentPart otherwise.
type OpenAIMessage struct {
	Role      string           `json:"role"`
	Content   any              `json:"content"`
	ToolCalls []OpenAIToolCall `json:"tool_calls,omitempty"`
}

// OpenAIContentPart is one multimodal content fragment.
type OpenAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *OpenAIImageURL `json:"image_url,omitempty"`
}

// OpenAIImageURL points at downloadable image content.
type OpenAIImageURL struct {
	URL string `json:"url"`
}

// OpenAIToolCall mirrors the chat-completions tool_calls entry.
type OpenAIToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function OpenAIFunction `json:"function"`
}

// OpenAIFunction carries a tool call's name and JSON-encoded arguments.
type OpenAIFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Messages converts stored messages into the requested format. urls maps
// asset hashes to download URLs for file parts; entries may be missing when
// blob storage is disabled, in which case file parts degrade to text.
func Messages(msgs []model.Message, format Format, urls map[string]string) (any, error) {
	switch format {
	case FormatNone:
		return msgs, nil
	case FormatOpenAI:
		return toOpenAI(msgs, urls), nil
	case FormatLangChain:
		return toLangChain(msgs, urls), nil
	default:
		return nil, fmt.Errorf("unsupported format %q: %w", format, cerrors.ErrInvalidInput)
	}
}

func toOpenAI(msgs []model.Message, urls map[string]string) []OpenAIMessage {
	out := make([]OpenAIMessage, 0, len(msgs))
	for _, m := range msgs {
		var content []OpenAIContentPart
		var calls []OpenAIToolCall

		for _, p := range m.Parts {
			switch p.Type {
			case model.PartText:
				content = append(content, OpenAIContentPart{Type: "text", Text: p.Text})
			case model.PartToolCall:
				calls = append(calls, OpenAIToolCall{
					ID:   callID(m, p),
					Type: "function",
					Function: OpenAIFunction{
						Name:      metaString(p.Meta, "function_name"),
						Arguments: encodeJSON(p.Meta["parameters"]),
					},
				})
			case model.PartToolResult:
				content = append(content, OpenAIContentPart{Type: "text", Text: toolResultText(p)})
			default:
				if url, ok := urls[assetSHA(p)]; ok {
					content = append(content, OpenAIContentPart{
						Type:     "image_url",
						ImageURL: &OpenAIImageURL{URL: url},
					})
				} else {
					content = append(content, OpenAIContentPart{
						Type: "text",
						Text: fmt.Sprintf("[%s file: %s]", p.Type, p.Filename),
					})
				}
			}
		}

		msg := OpenAIMessage{Role: m.Role, ToolCalls: calls}
		switch {
		case len(content) == 1 && content[0].Type == "text":
			msg.Content = content[0].Text
		case len(content) > 0:
			msg.Content = content
		}
		out = append(out, msg)
	}
	return out
}

func toLangChain(msgs []model.Message, urls map[string]string) []llms.ChatMessage {
	out := make([]llms.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		content := langchainContent(m.Parts, urls)
		switch m.Role {
		case "user", "human":
			out = append(out, llms.HumanChatMessage{Content: content})
		case "assistant", "ai":
			out = append(out, llms.AIChatMessage{
				Content:   content,
				ToolCalls: langchainToolCalls(m),
			})
		case "system":
			out = append(out, llms.SystemChatMessage{Content: content})
		case "tool":
			out = append(out, llms.ToolChatMessage{ID: m.ID.String(), Content: content})
		default:
			out = append(out, llms.GenericChatMessage{Role: m.Role, Content: content})
		}
	}
	return out
}

// langchainContent flattens parts to a string: plain text when the message is
// a single text part, otherwise a JSON array describing each part.
func langchainContent(parts []model.Part, urls map[string]string) string {
	if len(parts) == 1 && parts[0].Type == model.PartText {
		return parts[0].Text
	}

	items := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case model.PartText:
			items = append(items, map[string]any{"type": "text", "text": p.Text})
		case model.PartToolCall:
			items = append(items, map[string]any{
				"type":          "tool-call",
				"function_name": metaString(p.Meta, "function_name"),
				"parameters":    p.Meta["parameters"],
			})
		case model.PartToolResult:
			items = append(items, map[string]any{"type": "tool-result", "payload": toolResultText(p)})
		default:
			item := map[string]any{"type": "image", "filename": p.Filename}
			if url, ok := urls[assetSHA(p)]; ok {
				item["url"] = url
			}
			items = append(items, item)
		}
	}
	return encodeJSON(items)
}

func langchainToolCalls(m model.Message) []llms.ToolCall {
	var calls []llms.ToolCall
	for _, p := range m.Parts {
		if p.Type != model.PartToolCall {
			continue
		}
		calls = append(calls, llms.ToolCall{
			ID:   callID(m, p),
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      metaString(p.Meta, "function_name"),
				Arguments: encodeJSON(p.Meta["parameters"]),
			},
		})
	}
	return calls
}

// callID prefers an explicit id in the part metadata and falls back to the
// message ID, which is stable across exports.
func callID(m model.Message, p model.Part) string {
	if id := metaString(p.Meta, "id"); id != "" {
		return id
	}
	return m.ID.String()
}

func assetSHA(p model.Part) string {
	if p.Asset == nil {
		return ""
	}
	return p.Asset.SHA256
}

func toolResultText(p model.Part) string {
	if len(p.Meta) > 0 {
		return encodeJSON(map[string]any(p.Meta))
	}
	if p.Text != "" {
		return p.Text
	}
	return "{}"
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func encodeJSON(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
