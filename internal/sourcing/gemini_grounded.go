package sourcing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/wolfman30/easygopharm/internal/models"
)

const analysisThinkingBudget int32 = 4000

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGroundedModel answers prompts with the Google Search tool enabled.
type GeminiGroundedModel struct {
	models  contentGenerator
	modelID string
}

var _ GroundedModel = (*GeminiGroundedModel)(nil)

// NewGeminiGroundedModel creates the grounded analysis client.
func NewGeminiGroundedModel(ctx context.Context, apiKey, modelID string) (*GeminiGroundedModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("sourcing: gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("sourcing: failed to create gemini client: %w", err)
	}
	return newGeminiGroundedModel(client.Models, modelID), nil
}

func newGeminiGroundedModel(gen contentGenerator, modelID string) *GeminiGroundedModel {
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-pro"
	}
	return &GeminiGroundedModel{models: gen, modelID: modelID}
}

// Generate runs a single grounded query.
func (m *GeminiGroundedModel) Generate(ctx context.Context, prompt string) (GroundedResponse, error) {
	resp, err := m.models.GenerateContent(ctx, m.modelID,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
			ThinkingConfig: &genai.ThinkingConfig{
				ThinkingBudget: genai.Ptr(analysisThinkingBudget),
			},
		})
	if err != nil {
		return GroundedResponse{}, fmt.Errorf("sourcing: grounded generation failed: %w", err)
	}
	if resp == nil {
		return GroundedResponse{}, errors.New("sourcing: gemini returned no response")
	}
	return GroundedResponse{
		Text:    responseText(resp),
		Sources: sourcesFromResponse(resp),
	}, nil
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// sourcesFromResponse keeps web chunks only, in provider order.
func sourcesFromResponse(resp *genai.GenerateContentResponse) []models.GroundingSource {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []models.GroundingSource
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		out = append(out, models.GroundingSource{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return out
}
