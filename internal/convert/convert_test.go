package convert

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	cerrors "contextd/internal/errors"
	"contextd/internal/model"
)

func textMessage(role, text string) model.Message {
	return model.Message{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Role:      role,
		Parts:     []model.Part{{Type: model.PartText, Text: text}},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatNone},
		{in: "openai", want: FormatOpenAI},
		{in: "langchain", want: FormatLangChain},
		{in: "yaml", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, cerrors.ErrInvalidInput, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMessages_NoneReturnsStoredShape(t *testing.T) {
	msgs := []model.Message{textMessage("user", "hi")}
	out, err := Messages(msgs, FormatNone, nil)
	require.NoError(t, err)
	same, ok := out.([]model.Message)
	require.True(t, ok)
	assert.Equal(t, msgs, same)
}

func TestOpenAI_SimpleText(t *testing.T) {
	out, err := Messages([]model.Message{textMessage("user", "Hello")}, FormatOpenAI, nil)
	require.NoError(t, err)

	msgs, ok := out.([]OpenAIMessage)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Empty(t, msgs[0].ToolCalls)
}

func TestOpenAI_FilePartUsesSignedURL(t *testing.T) {
	msg := model.Message{
		ID:   uuid.New(),
		Role: "user",
		Parts: []model.Part{
			{Type: model.PartText, Text: "look at this"},
			{Type: model.PartFile, Filename: "chart.png",
				Asset: &model.Asset{SHA256: "abc123", MIME: "image/png"}},
		},
	}
	urls := map[string]string{"abc123": "https://blobs.example.com/abc123"}

	out, err := Messages([]model.Message{msg}, FormatOpenAI, urls)
	require.NoError(t, err)

	msgs := out.([]OpenAIMessage)
	require.Len(t, msgs, 1)
	parts, ok := msgs[0].Content.([]OpenAIContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "look at this", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	require.NotNil(t, parts[1].ImageURL)
	assert.Equal(t, "https://blobs.example.com/abc123", parts[1].ImageURL.URL)
}

func TestOpenAI_FilePartWithoutURLDegradesToText(t *testing.T) {
	msg := model.Message{
		ID:   uuid.New(),
		Role: "user",
		Parts: []model.Part{
			{Type: model.PartText, Text: "attached"},
			{Type: "pdf", Filename: "report.pdf"},
		},
	}

	out, err := Messages([]model.Message{msg}, FormatOpenAI, nil)
	require.NoError(t, err)

	parts := out.([]OpenAIMessage)[0].Content.([]OpenAIContentPart)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[1].Type)
	assert.Equal(t, "[pdf file: report.pdf]", parts[1].Text)
}

func TestOpenAI_ToolCall(t *testing.T) {
	msg := model.Message{
		ID:   uuid.New(),
		Role: "assistant",
		Parts: []model.Part{
			{Type: model.PartToolCall, Meta: map[string]any{
				"id":            "call_42",
				"function_name": "get_weather",
				"parameters":    map[string]any{"location": "Berlin"},
			}},
		},
	}

	out, err := Messages([]model.Message{msg}, FormatOpenAI, nil)
	require.NoError(t, err)

	msgs := out.([]OpenAIMessage)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].ToolCalls, 1)
	assert.Nil(t, msgs[0].Content)

	call := msgs[0].ToolCalls[0]
	assert.Equal(t, "call_42", call.ID)
	assert.Equal(t, "function", call.Type)
	assert.Equal(t, "get_weather", call.Function.Name)

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(call.Function.Arguments), &args))
	assert.Equal(t, "Berlin", args["location"])
}

func TestOpenAI_ToolCallWithoutIDFallsBackToMessageID(t *testing.T) {
	msg := model.Message{
		ID:   uuid.New(),
		Role: "assistant",
		Parts: []model.Part{
			{Type: model.PartToolCall, Meta: map[string]any{
				"function_name": "search",
				"parameters":    map[string]any{"q": "go"},
			}},
		},
	}

	out, err := Messages([]model.Message{msg}, FormatOpenAI, nil)
	require.NoError(t, err)
	calls := out.([]OpenAIMessage)[0].ToolCalls
	require.Len(t, calls, 1)
	assert.Equal(t, msg.ID.String(), calls[0].ID)
}

func TestLangChain_RoleMapping(t *testing.T) {
	tests := []struct {
		role string
		want llms.ChatMessageType
	}{
		{role: "user", want: llms.ChatMessageTypeHuman},
		{role: "assistant", want: llms.ChatMessageTypeAI},
		{role: "system", want: llms.ChatMessageTypeSystem},
		{role: "tool", want: llms.ChatMessageTypeTool},
		{role: "narrator", want: llms.ChatMessageTypeGeneric},
	}
	for _, tt := range tests {
		out, err := Messages([]model.Message{textMessage(tt.role, "test")}, FormatLangChain, nil)
		require.NoError(t, err, tt.role)

		msgs, ok := out.([]llms.ChatMessage)
		require.True(t, ok)
		require.Len(t, msgs, 1)
		assert.Equal(t, tt.want, msgs[0].GetType(), tt.role)
		assert.Equal(t, "test", msgs[0].GetContent(), tt.role)
	}
}

func TestLangChain_MultipartContentIsJSON(t *testing.T) {
	msg := model.Message{
		ID:   uuid.New(),
		Role: "user",
		Parts: []model.Part{
			{Type: model.PartText, Text: "see attached"},
			{Type: model.PartFile, Filename: "pic.png",
				Asset: &model.Asset{SHA256: "f00d", MIME: "image/png"}},
		},
	}
	urls := map[string]string{"f00d": "https://blobs.example.com/f00d"}

	out, err := Messages([]model.Message{msg}, FormatLangChain, urls)
	require.NoError(t, err)

	msgs := out.([]llms.ChatMessage)
	require.Len(t, msgs, 1)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs[0].GetContent()), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "text", items[0]["type"])
	assert.Equal(t, "see attached", items[0]["text"])
	assert.Equal(t, "image", items[1]["type"])
	assert.Equal(t, "https://blobs.example.com/f00d", items[1]["url"])
	assert.Equal(t, "pic.png", items[1]["filename"])
}

func TestLangChain_AssistantToolCalls(t *testing.T) {
	msg := model.Message{
		ID:   uuid.New(),
		Role: "assistant",
		Parts: []model.Part{
			{Type: model.PartText, Text: "calling a tool"},
			{Type: model.PartToolCall, Meta: map[string]any{
				"id":            "call_9",
				"function_name": "lookup",
				"parameters":    map[string]any{"key": "v"},
			}},
		},
	}

	out, err := Messages([]model.Message{msg}, FormatLangChain, nil)
	require.NoError(t, err)

	msgs := out.([]llms.ChatMessage)
	require.Len(t, msgs, 1)
	ai, ok := msgs[0].(llms.AIChatMessage)
	require.True(t, ok)
	require.Len(t, ai.ToolCalls, 1)
	assert.Equal(t, "call_9", ai.ToolCalls[0].ID)
	require.NotNil(t, ai.ToolCalls[0].FunctionCall)
	assert.Equal(t, "lookup", ai.ToolCalls[0].FunctionCall.Name)
}

func TestMessages_UnsupportedFormat(t *testing.T) {
	_, err := Messages(nil, Format("csv"), nil)
	assert.ErrorIs(t, err, cerrors.ErrInvalidInput)
}
