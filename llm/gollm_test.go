package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolUses(t *testing.T) {
	t.Parallel()

	text := `I'll read the file first.
[{"name": "read_file", "arguments": {"path": "main.go"}}]`

	uses := parseToolUses(text)
	require.Len(t, uses, 1)
	assert.Equal(t, "read_file", uses[0].Name)
	assert.JSONEq(t, `{"path": "main.go"}`, string(uses[0].Input))
	assert.NotEmpty(t, uses[0].ID)
}

func TestParseToolUsesAcceptsInputKey(t *testing.T) {
	t.Parallel()

	uses := parseToolUses(`[{"name": "list_files", "input": {"path": "."}}]`)
	require.Len(t, uses, 1)
	assert.JSONEq(t, `{"path": "."}`, string(uses[0].Input))
}

func TestParseToolUsesPlainText(t *testing.T) {
	t.Parallel()

	assert.Nil(t, parseToolUses("All done. ALL_TASKS_COMPLETE"))
	assert.Nil(t, parseToolUses(""))
	assert.Nil(t, parseToolUses(`[{"name": broken json`))
}

func TestStripToolUseJSON(t *testing.T) {
	t.Parallel()

	text := `Reading now.
[{"name": "read_file", "arguments": {"path": "main.go"}}]`
	uses := parseToolUses(text)

	assert.Equal(t, "Reading now.", stripToolUseJSON(text, uses))
	assert.Equal(t, "untouched", stripToolUseJSON("untouched", nil))
}

func TestBuildResponseStopReason(t *testing.T) {
	t.Parallel()

	svc := &GollmService{provider: "anthropic", model: "m"}

	withTool := svc.buildResponse(Request{}, `[{"name": "read_file", "arguments": {}}]`)
	assert.Equal(t, StopToolUse, withTool.StopReason)
	assert.Len(t, withTool.ToolUses(), 1)

	textOnly := svc.buildResponse(Request{}, "plain answer")
	assert.Equal(t, StopEndTurn, textOnly.StopReason)
	assert.Equal(t, "plain answer", textOnly.Text())
}

func TestTranslateError(t *testing.T) {
	t.Parallel()

	svc := &GollmService{provider: "anthropic"}

	tests := []struct {
		msg  string
		want any
	}{
		{"401 Unauthorized", &AuthenticationError{}},
		{"invalid api key provided", &AuthenticationError{}},
		{"429 rate limit exceeded", &RateLimitError{}},
		{"500 internal server error", &ServerError{}},
		{"request invalid request body", &InvalidRequestError{}},
		{"timeout waiting for response", &NetworkError{}},
		{"unexpected EOF", &NetworkError{}},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()
			err := svc.translateError(errors.New(tt.msg))
			require.Error(t, err)
			assert.IsType(t, tt.want, err)
			assert.True(t, IsServiceError(err))
		})
	}

	unknown := svc.translateError(errors.New("something odd happened"))
	assert.IsType(t, &ServiceError{}, unknown)
	assert.True(t, IsServiceError(unknown))
	assert.Nil(t, svc.translateError(nil))
}

func TestEstimateRequestTokens(t *testing.T) {
	t.Parallel()

	req := Request{
		System: "12345678", // 8 chars
		Messages: []Message{
			UserMessage("abcdefghijkl"), // 12 chars
		},
	}
	assert.Equal(t, 5, estimateRequestTokens(req))

	assert.Equal(t, 10, estimateRequestTokens(Request{}))
}
