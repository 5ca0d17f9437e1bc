// Package render turns a message's role and parts into a deterministic
// textual transcript used by downstream consumers. Rendering is pure: the same
// (role, parts) input always yields the same output, and no part kind is an
// error — unrecognized kinds degrade to a generic file line.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"contextd/internal/model"
)

// Line renders a single part as one transcript line.
//
// Formats:
//
//	text         <role> {text}
//	tool-call    <role> USE TOOL {function_name}, WITH PARAMS {parameters}
//	tool-result  <role> TOOL RESULT {payload}
//	anything else is treated as a file attachment:
//	             <role> [{kind} file: {filename}]
//
// tool-call parameters and tool-result payloads are encoded with
// encoding/json, which sorts map keys, so the output is deterministic and
// round-trips back to the metadata mapping.
func Line(role string, part model.Part) string {
	switch part.Type {
	case model.PartText:
		return fmt.Sprintf("<%s> %s", role, part.Text)
	case model.PartToolCall:
		return fmt.Sprintf("<%s> USE TOOL %s, WITH PARAMS %s",
			role, metaString(part.Meta, "function_name"), encodeJSON(part.Meta["parameters"]))
	case model.PartToolResult:
		return fmt.Sprintf("<%s> TOOL RESULT %s", role, toolResultPayload(part))
	default:
		return fmt.Sprintf("<%s> [%s file: %s]", role, part.Type, part.Filename)
	}
}

// Transcript renders all parts in order, newline-joined.
func Transcript(role string, parts []model.Part) string {
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = Line(role, p)
	}
	return strings.Join(lines, "\n")
}

func toolResultPayload(part model.Part) string {
	if len(part.Meta) > 0 {
		return encodeJSON(map[string]any(part.Meta))
	}
	if part.Text != "" {
		return part.Text
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
		// Meta came out of a JSON column, so this cannot happen for stored
		// messages; keep rendering total anyway.
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
