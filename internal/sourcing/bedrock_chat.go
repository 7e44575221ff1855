package sourcing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

const bedrockMaxTokens int32 = 1024

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockChatClient implements ChatClient on the Bedrock Converse API.
type BedrockChatClient struct {
	api     bedrockConverseAPI
	modelID string
}

var _ ChatClient = (*BedrockChatClient)(nil)

// NewBedrockChatClient returns nil when the client or model id is missing.
func NewBedrockChatClient(api bedrockConverseAPI, modelID string) *BedrockChatClient {
	if api == nil || strings.TrimSpace(modelID) == "" {
		return nil
	}
	return &BedrockChatClient{api: api, modelID: modelID}
}

// Complete implements ChatClient.
func (c *BedrockChatClient) Complete(ctx context.Context, req ChatRequest) (ChatReply, error) {
	var system []brtypes.SystemContentBlock
	if strings.TrimSpace(req.System) != "" {
		system = append(system, &brtypes.SystemContentBlockMemberText{Value: req.System})
	}

	messages := make([]brtypes.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := brtypes.ConversationRoleUser
		if msg.Role == RoleModel {
			role = brtypes.ConversationRoleAssistant
		}
		messages = append(messages, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: msg.Text}},
		})
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(c.modelID),
		System:          system,
		Messages:        messages,
		InferenceConfig: &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(bedrockMaxTokens)},
	})
	if err != nil {
		return ChatReply{}, fmt.Errorf("sourcing: bedrock converse failed: %w", err)
	}

	text, err := bedrockOutputText(out)
	if err != nil {
		return ChatReply{}, err
	}
	return ChatReply{Text: text, Provider: "bedrock"}, nil
}

func bedrockOutputText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil || out.Output == nil {
		return "", errors.New("sourcing: bedrock returned empty output")
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("sourcing: unexpected bedrock output %T", out.Output)
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("sourcing: bedrock returned empty content")
	}
	return text, nil
}
