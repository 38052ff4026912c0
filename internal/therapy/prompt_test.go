package therapy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betterself/voice-therapist-api/internal/model"
)

func TestBuildPromptEmptyHistory(t *testing.T) {
	got := BuildPrompt(nil, "hello")

	assert.True(t, strings.HasPrefix(got, promptPreamble))
	assert.True(t, strings.HasSuffix(got, "User: hello\n"))
}

func TestBuildPromptReversesHistory(t *testing.T) {
	// History arrives newest first, the way the store returns it.
	history := []model.Message{
		{Sender: model.SenderAssistant, Content: "second reply"},
		{Sender: model.SenderUser, Content: "second question"},
		{Sender: model.SenderAssistant, Content: "first reply"},
		{Sender: model.SenderUser, Content: "first question"},
	}

	got := BuildPrompt(history, "third question")

	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	last5 := lines[len(lines)-5:]
	assert.Equal(t, []string{
		"User: first question",
		"You: first reply",
		"User: second question",
		"You: second reply",
		"User: third question",
	}, last5)
}

func TestBuildPromptLabelsSenders(t *testing.T) {
	history := []model.Message{
		{Sender: model.SenderAssistant, Content: "a reply"},
	}
	got := BuildPrompt(history, "next")

	assert.Contains(t, got, "You: a reply\n")
	assert.NotContains(t, got, "assistant:")
}
