package bootstrap

import (
	"context"
	"strings"

	appconfig "github.com/wolfman30/easygopharm/internal/config"
	"github.com/wolfman30/easygopharm/internal/voice"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// BuildVoiceConnector returns the Gemini Live connector, or nil when voice is
// not configured. A nil connector makes the voice route answer 503.
func BuildVoiceConnector(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) voice.LiveConnector {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		logger.Warn("live voice disabled (GEMINI_API_KEY not set)")
		return nil
	}
	connector, err := voice.NewGeminiLiveConnector(ctx, cfg.GeminiAPIKey, cfg.GeminiLiveModel, cfg.GeminiVoiceName)
	if err != nil {
		logger.Error("failed to initialize live voice connector", "error", err)
		return nil
	}
	logger.Info("live voice enabled", "model", cfg.GeminiLiveModel, "voice", cfg.GeminiVoiceName)
	return connector
}
