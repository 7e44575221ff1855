package sourcing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiChatClient implements ChatClient on the Gemini chat API.
type GeminiChatClient struct {
	client  *genai.Client
	modelID string
}

var _ ChatClient = (*GeminiChatClient)(nil)

// NewGeminiChatClient creates a chat client for the given model.
func NewGeminiChatClient(ctx context.Context, apiKey, modelID string) (*GeminiChatClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("sourcing: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("sourcing: failed to create gemini chat client: %w", err)
	}
	return &GeminiChatClient{client: client, modelID: modelID}, nil
}

// Complete replays history into a chat session and sends the last turn.
func (c *GeminiChatClient) Complete(ctx context.Context, req ChatRequest) (ChatReply, error) {
	if len(req.Messages) == 0 {
		return ChatReply{}, errors.New("sourcing: gemini requires at least one message")
	}
	model := c.client.GenerativeModel(c.modelID)
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	cs := model.StartChat()
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  msg.Role,
			Parts: []genai.Part{genai.Text(msg.Text)},
		})
	}

	last := req.Messages[len(req.Messages)-1]
	resp, err := cs.SendMessage(ctx, genai.Text(last.Text))
	if err != nil {
		return ChatReply{}, fmt.Errorf("sourcing: gemini chat failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ChatReply{}, errors.New("sourcing: gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return ChatReply{}, errors.New("sourcing: gemini returned empty content")
	}
	return ChatReply{Text: out, Provider: "gemini"}, nil
}

// Close releases the underlying client.
func (c *GeminiChatClient) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
