package sourcing

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/easygopharm/pkg/logging"
)

type scriptedChat struct {
	reply ChatReply
	err   error
	calls []ChatRequest
}

func (s *scriptedChat) Complete(_ context.Context, req ChatRequest) (ChatReply, error) {
	s.calls = append(s.calls, req)
	return s.reply, s.err
}

func TestAssistant_ChatSendsInstructionAndHistory(t *testing.T) {
	client := &scriptedChat{reply: ChatReply{Text: "Generic name is nitisinone.", Provider: "gemini"}}
	a := NewAssistant(client, nil, logging.Discard())

	reply, err := a.Chat(context.Background(), []ChatMessage{
		{Role: "model", Text: "Welcome to EasygoPharm."},
		{Role: "user", Text: "What is Orfadin?"},
		{Role: "assistant", Text: "A brand of nitisinone."},
		{Role: "user", Text: "  "},
	}, " generic name? ")
	require.NoError(t, err)
	assert.Equal(t, "Generic name is nitisinone.", reply.Text)

	require.Len(t, client.calls, 1)
	req := client.calls[0]
	assert.Contains(t, req.System, "Never write prescriptions")
	assert.Equal(t, []ChatMessage{
		{Role: RoleUser, Text: "What is Orfadin?"},
		{Role: RoleModel, Text: "A brand of nitisinone."},
		{Role: RoleUser, Text: "generic name?"},
	}, req.Messages)
}

func TestAssistant_RejectsEmptyAndUnconfigured(t *testing.T) {
	a := NewAssistant(&scriptedChat{}, nil, logging.Discard())
	_, err := a.Chat(context.Background(), nil, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = NewAssistant(nil, nil, logging.Discard()).Chat(context.Background(), nil, "hi")
	assert.Error(t, err)
}

func TestNormalizeHistory_KeepsMostRecent(t *testing.T) {
	var history []ChatMessage
	for i := 0; i < maxChatHistory+6; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		history = append(history, ChatMessage{Role: role, Text: "m"})
	}
	got := normalizeHistory(history)
	assert.Len(t, got, maxChatHistory)
	assert.Equal(t, RoleUser, got[0].Role)
}

func TestAssistant_ResentQuestionKeepsRolesAlternating(t *testing.T) {
	client := &scriptedChat{reply: ChatReply{Text: "ok", Provider: "bedrock"}}
	a := NewAssistant(client, nil, logging.Discard())

	_, err := a.Chat(context.Background(), []ChatMessage{
		{Role: "user", Text: "first question"},
	}, "retry")
	require.NoError(t, err)

	require.Len(t, client.calls, 1)
	assert.Equal(t, []ChatMessage{
		{Role: RoleUser, Text: "first question\n\nretry"},
	}, client.calls[0].Messages)
}

func TestNormalizeHistory_MergesRepeatedRoles(t *testing.T) {
	got := normalizeHistory([]ChatMessage{
		{Role: "user", Text: "a"},
		{Role: "user", Text: "b"},
		{Role: "model", Text: "c"},
		{Role: "assistant", Text: "d"},
		{Role: "user", Text: "e"},
	})
	assert.Equal(t, []ChatMessage{
		{Role: RoleUser, Text: "a\n\nb"},
		{Role: RoleModel, Text: "c\n\nd"},
		{Role: RoleUser, Text: "e"},
	}, got)
}

func TestFallbackChatClient(t *testing.T) {
	primary := &scriptedChat{err: errors.New("gemini down")}
	fallback := &scriptedChat{reply: ChatReply{Text: "from bedrock", Provider: "bedrock"}}

	client := NewFallbackChatClient(primary, fallback, logging.Discard())
	reply, err := client.Complete(context.Background(), ChatRequest{Messages: []ChatMessage{{Role: RoleUser, Text: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "bedrock", reply.Provider)
	assert.Len(t, primary.calls, 1)
	assert.Len(t, fallback.calls, 1)

	fallback.err = errors.New("throttled")
	_, err = client.Complete(context.Background(), ChatRequest{})
	assert.EqualError(t, err, "throttled")
}

func TestNewFallbackChatClient_SingleProvider(t *testing.T) {
	only := &scriptedChat{}
	assert.Same(t, only, NewFallbackChatClient(only, nil, nil))
	assert.Same(t, only, NewFallbackChatClient(nil, only, nil))
	assert.Nil(t, NewFallbackChatClient(nil, nil, nil))
}

type fakeConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestBedrockChatClient_Complete(t *testing.T) {
	api := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: " Sure. "}},
		}},
	}}
	client := NewBedrockChatClient(api, "anthropic.claude-3-haiku")
	require.NotNil(t, client)

	reply, err := client.Complete(context.Background(), ChatRequest{
		System: "sys",
		Messages: []ChatMessage{
			{Role: RoleUser, Text: "a"},
			{Role: RoleModel, Text: "b"},
			{Role: RoleUser, Text: "c"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ChatReply{Text: "Sure.", Provider: "bedrock"}, reply)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude-3-haiku", *api.input.ModelId)
	require.Len(t, api.input.Messages, 3)
	assert.Equal(t, brtypes.ConversationRoleAssistant, api.input.Messages[1].Role)
	require.Len(t, api.input.System, 1)
}

func TestBedrockChatClient_EmptyOutput(t *testing.T) {
	client := NewBedrockChatClient(&fakeConverse{out: &bedrockruntime.ConverseOutput{}}, "m")
	_, err := client.Complete(context.Background(), ChatRequest{})
	assert.Error(t, err)

	assert.Nil(t, NewBedrockChatClient(nil, "m"))
	assert.Nil(t, NewBedrockChatClient(&fakeConverse{}, ""))
}
