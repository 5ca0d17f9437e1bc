package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"contextd/internal/model"
)

func TestLine_Text(t *testing.T) {
	line := Line("user", model.Part{Type: model.PartText, Text: "hi"})
	assert.Equal(t, "<user> hi", line)
}

func TestLine_ToolCall(t *testing.T) {
	part := model.Part{
		Type: model.PartToolCall,
		Meta: map[string]any{
			"function_name": "search",
			"parameters":    map[string]any{"q": "x"},
		},
	}
	line := Line("user", part)
	assert.Equal(t, `<user> USE TOOL search, WITH PARAMS {"q":"x"}`, line)
}

func TestLine_ToolCall_ParamOrderIsDeterministic(t *testing.T) {
	part := model.Part{
		Type: model.PartToolCall,
		Meta: map[string]any{
			"function_name": "lookup",
			"parameters":    map[string]any{"b": 2, "a": 1, "c": 3},
		},
	}
	// encoding/json sorts map keys
	want := `<assistant> USE TOOL lookup, WITH PARAMS {"a":1,"b":2,"c":3}`
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, Line("assistant", part))
	}
}

func TestLine_ToolResult(t *testing.T) {
	part := model.Part{
		Type: model.PartToolResult,
		Meta: map[string]any{"output": "42"},
	}
	assert.Equal(t, `<tool> TOOL RESULT {"output":"42"}`, Line("tool", part))
}

func TestLine_ToolResult_TextFallback(t *testing.T) {
	assert.Equal(t, "<tool> TOOL RESULT done",
		Line("tool", model.Part{Type: model.PartToolResult, Text: "done"}))
	assert.Equal(t, "<tool> TOOL RESULT {}",
		Line("tool", model.Part{Type: model.PartToolResult}))
}

func TestLine_File(t *testing.T) {
	part := model.Part{Type: "file", Filename: "a.png"}
	assert.Equal(t, "<user> [file file: a.png]", Line("user", part))
}

func TestLine_UnknownKindDegradesToFile(t *testing.T) {
	part := model.Part{Type: "hologram", Filename: "h.bin"}
	assert.Equal(t, "<user> [hologram file: h.bin]", Line("user", part))
}

func TestTranscript_OrderPreserved(t *testing.T) {
	parts := []model.Part{
		{Type: model.PartText, Text: "first"},
		{Type: "image", Filename: "a.png"},
		{Type: model.PartText, Text: "last"},
	}
	want := "<user> first\n<user> [image file: a.png]\n<user> last"
	assert.Equal(t, want, Transcript("user", parts))
}

func TestTranscript_Empty(t *testing.T) {
	assert.Equal(t, "", Transcript("user", nil))
}
