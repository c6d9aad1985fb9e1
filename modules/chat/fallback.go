package chat

import (
	"context"
	"errors"

	convdomain "github.com/example/todo-chat-demo/domain/conversation"
	"github.com/example/todo-chat-demo/llm"
)

// Fallback outcomes, used as metric labels.
const (
	OutcomeStatic            = "static"
	OutcomeAssistant         = "assistant"
	OutcomeMissingCredential = "missing_credential"
	OutcomeFailed            = "failed"
)

const (
	// SystemPrompt is sent ahead of the conversation context.
	SystemPrompt = "You are a helpful AI Todo assistant. Keep replies short and clear."

	// DefaultContextTurns is how many recent turns are sent as context.
	DefaultContextTurns = 12

	staticReply            = "I can only run todo commands.\n\n" + HelpText
	missingCredentialReply = "OPENAI_API_KEY missing. Add key to enable real AI."
)

// Fallback is the reply produced for a message no command matched.
type Fallback struct {
	Text    string
	Outcome string
}

// Responder answers messages that match no command. Respond never fails;
// problems are reported in the reply text.
type Responder interface {
	Respond(ctx context.Context, message string, recent TurnLoader) Fallback
}

// StaticResponder replies with the command help.
type StaticResponder struct{}

// Respond returns the static reply.
func (StaticResponder) Respond(context.Context, string, TurnLoader) Fallback {
	return Fallback{Text: staticReply, Outcome: OutcomeStatic}
}

// Completer produces assistant text from chat messages.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// CompletionResponder delegates to a text-completion service with the recent
// conversation as context. One attempt per message.
type CompletionResponder struct {
	completer    Completer
	contextTurns int
}

// NewCompletionResponder creates a CompletionResponder sending up to
// contextTurns turns (DefaultContextTurns when <= 0).
func NewCompletionResponder(completer Completer, contextTurns int) *CompletionResponder {
	if contextTurns <= 0 {
		contextTurns = DefaultContextTurns
	}
	return &CompletionResponder{completer: completer, contextTurns: contextTurns}
}

// Respond calls the completer and converts any failure into a readable reply.
func (r *CompletionResponder) Respond(ctx context.Context, message string, recent TurnLoader) Fallback {
	messages := []llm.Message{{Role: "system", Content: SystemPrompt}}

	var turns []*convdomain.Turn
	if recent != nil {
		turns, _ = recent(ctx, r.contextTurns)
	}
	if len(turns) == 0 {
		messages = append(messages, llm.Message{Role: string(convdomain.RoleUser), Content: message})
	}
	for _, turn := range turns {
		messages = append(messages, llm.Message{Role: string(turn.Role), Content: turn.Content})
	}

	text, err := r.completer.Complete(ctx, messages)
	switch {
	case err == nil:
		return Fallback{Text: text, Outcome: OutcomeAssistant}
	case errors.Is(err, llm.ErrMissingCredential):
		return Fallback{Text: missingCredentialReply, Outcome: OutcomeMissingCredential}
	default:
		return Fallback{Text: "OpenAI call failed: " + llm.Category(err), Outcome: OutcomeFailed}
	}
}
