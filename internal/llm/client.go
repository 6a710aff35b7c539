// Package llm wraps the remote chat-completion API behind the narrow
// conversation surface the orchestrator drives. The provider contract is an
// OpenAI-compatible endpoint; the base URL and model are configuration.
package llm

import (
	"context"
	"encoding/base64"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/shuaib-ai/shuaib/internal/chat"
	"github.com/shuaib-ai/shuaib/internal/models"
)

// historyEncoding is the BPE encoding used to budget replayed history.
const historyEncoding = "cl100k_base"

// Options carries the sampling parameters and the history token budget.
type Options struct {
	Temperature float64
	TopP        float64
	TopK        int
	TokenBudget int
}

type Client struct {
	model   llms.Model
	opts    Options
	logger  *zap.Logger
	encoder *tiktoken.Tiktoken
}

func New(baseURL, token, model string, opts Options, logger *zap.Logger) (*Client, error) {
	if token == "" {
		// The client refuses an empty token; local endpoints ignore it.
		token = "unused"
	}

	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}

	encoder, err := tiktoken.GetEncoding(historyEncoding)
	if err != nil {
		logger.Warn("token encoder unavailable, falling back to character estimate", zap.Error(err))
		encoder = nil
	}

	return &Client{model: llm, opts: opts, logger: logger, encoder: encoder}, nil
}

// NewConversation seeds a remote conversational context with the system
// instructions plus the prior turns, trimmed oldest-first to the token
// budget.
func (c *Client) NewConversation(prior []models.Message) chat.Conversation {
	history := make([]llms.MessageContent, 0, len(prior)+1)
	history = append(history, llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt))
	for _, msg := range c.trimToBudget(prior) {
		history = append(history, mapMessage(msg))
	}
	return &Conversation{client: c, history: history}
}

// trimToBudget drops the oldest messages until the remainder fits the
// budget. Messages are never split.
func (c *Client) trimToBudget(prior []models.Message) []models.Message {
	if c.opts.TokenBudget <= 0 {
		return prior
	}

	total := 0
	for i := len(prior) - 1; i >= 0; i-- {
		total += c.countTokens(prior[i].Content)
		if total > c.opts.TokenBudget {
			return prior[i+1:]
		}
	}
	return prior
}

func (c *Client) countTokens(text string) int {
	if c.encoder == nil {
		// Rough estimate: one token per four characters.
		return len(text)/4 + 1
	}
	return len(c.encoder.Encode(text, nil, nil))
}

// mapMessage converts a stored message into the remote turn format: a text
// part plus an inline binary part when an attachment is present.
func mapMessage(msg models.Message) llms.MessageContent {
	role := schema.ChatMessageTypeHuman
	if msg.Role == models.RoleModel {
		role = schema.ChatMessageTypeAI
	}

	parts := []llms.ContentPart{llms.TextPart(msg.Content)}
	if msg.Attachment != nil {
		if raw, err := base64.StdEncoding.DecodeString(msg.Attachment.Data); err == nil {
			parts = append(parts, llms.BinaryPart(msg.Attachment.MimeType, raw))
		}
	}
	return llms.MessageContent{Role: role, Parts: parts}
}

// Conversation is one seeded chat context. Turns accumulate into its
// history so later sends carry the full conversation.
type Conversation struct {
	client  *Client
	history []llms.MessageContent
}

// SendMessageStream begins a new model turn and returns a one-shot stream
// of response fragments. Empty text substitutes the probe message so the
// remote call never carries an empty text part.
func (conv *Conversation) SendMessageStream(ctx context.Context, text string, attachment *models.Attachment) chat.Stream {
	if text == "" {
		text = probeMessage
	}

	parts := []llms.ContentPart{llms.TextPart(text)}
	if attachment != nil {
		if raw, err := base64.StdEncoding.DecodeString(attachment.Data); err == nil {
			parts = append(parts, llms.BinaryPart(attachment.MimeType, raw))
		} else {
			conv.client.logger.Warn("dropping undecodable attachment payload", zap.Error(err))
		}
	}
	conv.history = append(conv.history, llms.MessageContent{
		Role:  schema.ChatMessageTypeHuman,
		Parts: parts,
	})

	stream := newStream()
	go conv.run(ctx, stream)
	return stream
}

// run drives the remote call, pushing each delivered chunk into the stream.
// The full reply is folded back into the conversation history on success; on
// failure the pending human turn is rolled back so a retry does not replay
// it.
func (conv *Conversation) run(ctx context.Context, stream *Stream) {
	var reply []byte
	opts := conv.client.opts

	_, err := conv.client.model.GenerateContent(ctx, conv.history,
		llms.WithTemperature(opts.Temperature),
		llms.WithTopP(opts.TopP),
		llms.WithTopK(opts.TopK),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			reply = append(reply, chunk...)
			return stream.push(ctx, string(chunk))
		}),
	)

	if err == nil {
		conv.history = append(conv.history,
			llms.TextParts(schema.ChatMessageTypeAI, string(reply)))
	} else {
		conv.history = conv.history[:len(conv.history)-1]
	}
	stream.finish(err)
}
