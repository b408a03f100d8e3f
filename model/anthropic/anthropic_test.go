package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikhilKumarMandal/multi-agent-system/core"
)

type wireParam struct {
	Role    string           `json:"role"`
	Content []map[string]any `json:"content"`
}

func encodeMessages(t *testing.T, history []core.Message) []wireParam {
	t.Helper()
	b, err := json.Marshal(buildMessages(history))
	require.NoError(t, err)
	var out []wireParam
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestBuildMessages_ToolResultsGrouped(t *testing.T) {
	history := []core.Message{
		core.NewUserMessage("book it"),
		core.NewToolCallMessage("", []core.ToolCall{
			{ID: "c1", Name: "lookup", Arguments: []byte(`{"q": "x"}`)},
			{ID: "c2", Name: "book", Arguments: []byte(`{}`)},
		}),
		core.NewToolResultMessage("c1", "lookup", "found x"),
		core.NewToolErrorMessage("c2", "book", "error: calendar unavailable"),
		core.NewAssistantMessage("done"),
	}

	msgs := encodeMessages(t, history)
	require.Len(t, msgs, 4)
	assert.Equal(t, "user", msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	assert.Equal(t, "tool_result", msgs[2].Content[0]["type"])
	assert.Equal(t, "c1", msgs[2].Content[0]["tool_use_id"])
	assert.Equal(t, "c2", msgs[2].Content[1]["tool_use_id"])
}

func TestBuildMessages_IsErrorFollowsMessageFlag(t *testing.T) {
	history := []core.Message{
		core.NewUserMessage("what does the log say"),
		core.NewToolCallMessage("", []core.ToolCall{
			{ID: "c1", Name: "read_log", Arguments: []byte(`{}`)},
			{ID: "c2", Name: "read_log", Arguments: []byte(`{}`)},
		}),
		core.NewToolResultMessage("c1", "read_log", "error: disk full at 02:00"),
		core.NewToolErrorMessage("c2", "read_log", "log file missing"),
	}

	msgs := encodeMessages(t, history)
	require.Len(t, msgs, 3)
	results := msgs[2].Content
	require.Len(t, results, 2)
	assert.NotEqual(t, true, results[0]["is_error"], "successful output that starts with error: stays a success")
	assert.Equal(t, true, results[1]["is_error"])
}
