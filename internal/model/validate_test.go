package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProject(t *testing.T) {
	p := &Project{Name: "  research  ", Description: " notes "}
	require.NoError(t, ValidateProject(p))
	assert.Equal(t, "research", p.Name)
	assert.Equal(t, "notes", p.Description)
}

func TestValidateProject_EmptyName(t *testing.T) {
	err := ValidateProject(&Project{Name: "   "})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Problems[0], "name must not be empty")
}

func TestValidateSpace_RequiresParent(t *testing.T) {
	err := ValidateSpace(&Space{Name: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent project")

	assert.NoError(t, ValidateSpace(&Space{Name: "s", ProjectID: uuid.New()}))
}

func TestValidateSession_RequiresParent(t *testing.T) {
	err := ValidateSession(&Session{Name: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parent space")
}

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		parts   []Part
		wantErr string
	}{
		{
			name:  "valid text",
			role:  "user",
			parts: []Part{{Type: PartText, Text: "hi"}},
		},
		{
			name:    "empty role",
			role:    " ",
			parts:   []Part{{Type: PartText, Text: "hi"}},
			wantErr: "role must not be empty",
		},
		{
			name:    "no parts",
			role:    "user",
			wantErr: "at least one part",
		},
		{
			name:    "text part without text",
			role:    "user",
			parts:   []Part{{Type: PartText}},
			wantErr: "has no text",
		},
		{
			name:    "tool-call missing function name",
			role:    "assistant",
			parts:   []Part{{Type: PartToolCall, Meta: map[string]any{"parameters": map[string]any{}}}},
			wantErr: "missing function_name",
		},
		{
			name:  "tool-call complete",
			role:  "assistant",
			parts: []Part{{Type: PartToolCall, Meta: map[string]any{"function_name": "search", "parameters": map[string]any{"q": "x"}}}},
		},
		{
			name:  "tool-result needs no shape",
			role:  "tool",
			parts: []Part{{Type: PartToolResult}},
		},
		{
			name:    "file part without filename",
			role:    "user",
			parts:   []Part{{Type: "image"}},
			wantErr: "has no filename",
		},
		{
			name:  "file part with filename",
			role:  "user",
			parts: []Part{{Type: "image", Filename: "a.png"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.role, tt.parts)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSnapshot_CopiesParts(t *testing.T) {
	m := &Message{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Role:      "user",
		Parts:     []Part{{Type: PartText, Text: "hi"}},
	}
	snap := m.Snapshot()
	m.Parts[0].Text = "mutated"
	assert.Equal(t, "hi", snap.Parts[0].Text)
	assert.Equal(t, m.ID, snap.ID)
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.False(t, TaskPending.Terminal())
	assert.False(t, TaskRunning.Terminal())
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
}
