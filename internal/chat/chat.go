// Package chat holds the turn orchestrator: the control flow between the
// session store and the streaming model client.
package chat

import (
	"context"

	"github.com/shuaib-ai/shuaib/internal/models"
)

// FallbackMessage replaces the in-progress response when a stream fails.
// It is never mixed with partial output.
const FallbackMessage = "দুঃখিত, কোনো একটি সমস্যা হয়েছে। দয়া করে আবার চেষ্টা করো।"

// Stream is a finite, one-shot sequence of response fragments. Recv returns
// io.EOF when the model finishes and any other error on transport or API
// failure. A Stream is not restartable.
type Stream interface {
	Recv() (string, error)
}

// Conversation is one remote conversational context. A new send assumes the
// previous stream has completed; the orchestrator's loading guard enforces
// that.
type Conversation interface {
	SendMessageStream(ctx context.Context, text string, attachment *models.Attachment) Stream
}

// Client seeds remote conversational contexts. It is the only surface of
// the model SDK the rest of the system sees.
type Client interface {
	NewConversation(prior []models.Message) Conversation
}
