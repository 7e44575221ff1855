package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const liveInstruction = "You are the EasygoPharm voice assistant. Help callers describe the rare medication they need so the sourcing team can triage the request. Be professional, warm and concise."

// ServerEvent is the provider-neutral form of one Live server message.
type ServerEvent struct {
	Audio        [][]byte
	Transcript   string
	Interrupted  bool
	TurnComplete bool
}

// LiveSession is an open realtime voice session.
type LiveSession interface {
	SendAudio(ctx context.Context, pcm []byte) error
	Receive() (ServerEvent, error)
	Close() error
}

// LiveConnector opens realtime sessions.
type LiveConnector interface {
	Connect(ctx context.Context) (LiveSession, error)
}

// GeminiLiveConnector opens Gemini Live audio sessions.
type GeminiLiveConnector struct {
	live      *genai.Live
	model     string
	voiceName string
}

var _ LiveConnector = (*GeminiLiveConnector)(nil)

// NewGeminiLiveConnector creates the connector. The API key is required.
func NewGeminiLiveConnector(ctx context.Context, apiKey, model, voiceName string) (*GeminiLiveConnector, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("voice: gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("voice: failed to create gemini client: %w", err)
	}
	if strings.TrimSpace(voiceName) == "" {
		voiceName = "Kore"
	}
	return &GeminiLiveConnector{live: client.Live, model: model, voiceName: voiceName}, nil
}

// Connect implements LiveConnector.
func (c *GeminiLiveConnector) Connect(ctx context.Context) (LiveSession, error) {
	session, err := c.live.Connect(ctx, c.model, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.voiceName},
			},
		},
		SystemInstruction:        genai.NewContentFromText(liveInstruction, genai.RoleUser),
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	})
	if err != nil {
		return nil, fmt.Errorf("voice: live connect failed: %w", err)
	}
	return &geminiLiveSession{session: session}, nil
}

type geminiLiveSession struct {
	session *genai.Session
}

func (s *geminiLiveSession) SendAudio(_ context.Context, pcm []byte) error {
	return s.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: InputMIMEType},
	})
}

func (s *geminiLiveSession) Receive() (ServerEvent, error) {
	msg, err := s.session.Receive()
	if err != nil {
		return ServerEvent{}, err
	}
	return eventFromMessage(msg), nil
}

func (s *geminiLiveSession) Close() error {
	return s.session.Close()
}

func eventFromMessage(msg *genai.LiveServerMessage) ServerEvent {
	var evt ServerEvent
	if msg == nil || msg.ServerContent == nil {
		return evt
	}
	content := msg.ServerContent
	if content.OutputTranscription != nil {
		evt.Transcript = content.OutputTranscription.Text
	}
	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				evt.Audio = append(evt.Audio, part.InlineData.Data)
			}
		}
	}
	evt.Interrupted = content.Interrupted
	evt.TurnComplete = content.TurnComplete
	return evt
}
