package therapy

import (
	"strings"

	"github.com/betterself/voice-therapist-api/internal/model"
)

// SystemInstruction is the persona handed to the completion service.
const SystemInstruction = "You are a therapist. Answer questions and provide helpful, empathetic responses."

// promptWindow bounds how much history is replayed to the completion
// service.  Older messages fall off silently; there is no summarization.
const promptWindow = 20

const promptPreamble = "Just answer the message you would say to the user without \"\" . \n \n" +
	"This is the conversation history between you (the AI) and the user:\n"

// BuildPrompt assembles the completion input: the fixed preamble, up to the
// last promptWindow persisted messages labeled by sender (oldest first; the
// history argument arrives newest first and is reversed here), and the
// just-received user utterance as the final line.
func BuildPrompt(history []model.Message, current string) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	for i := len(history) - 1; i >= 0; i-- {
		label := "You"
		if history[i].Sender == model.SenderUser {
			label = "User"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(history[i].Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(current)
	b.WriteString("\n")
	return b.String()
}
