package bootstrap

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/wolfman30/easygopharm/internal/config"
	"github.com/wolfman30/easygopharm/internal/observability/metrics"
	"github.com/wolfman30/easygopharm/internal/sourcing"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

// BuildAnalyzer wires grounded sourcing analysis. Without GEMINI_API_KEY the
// analyzer still serves requests and answers with the degraded report.
func BuildAnalyzer(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.AIMetrics, logger *logging.Logger) *sourcing.Analyzer {
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var archive sourcing.Archiver
	if bucket := strings.TrimSpace(cfg.ReportArchiveBucket); bucket != "" && awsCfg != nil {
		archive = sourcing.NewReportArchive(s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		}), bucket, logger)
		logger.Info("sourcing report archive enabled", "bucket", bucket)
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		logger.Warn("GEMINI_API_KEY not set; sourcing analysis will report degraded results")
		return sourcing.NewAnalyzer(nil, archive, m, logger)
	}
	model, err := sourcing.NewGeminiGroundedModel(ctx, cfg.GeminiAPIKey, cfg.GeminiAnalysisModel)
	if err != nil {
		logger.Error("failed to initialize grounded analysis model", "error", err)
		return sourcing.NewAnalyzer(nil, archive, m, logger)
	}
	logger.Info("sourcing analysis enabled", "model", cfg.GeminiAnalysisModel)
	return sourcing.NewAnalyzer(model, archive, m, logger)
}

// BuildAssistant wires the help-desk chat with Gemini as the primary provider
// and Bedrock as the fallback. The returned close func is never nil.
func BuildAssistant(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.AIMetrics, logger *logging.Logger) (*sourcing.Assistant, func()) {
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	closeFn := func() {}

	var primary sourcing.ChatClient
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := sourcing.NewGeminiChatClient(ctx, cfg.GeminiAPIKey, cfg.GeminiChatModel)
		if err != nil {
			logger.Error("failed to initialize gemini chat client", "error", err)
		} else {
			primary = gemini
			closeFn = func() {
				if err := gemini.Close(); err != nil {
					logger.Warn("failed to close gemini chat client", "error", err)
				}
			}
		}
	}

	var fallback sourcing.ChatClient
	if awsCfg != nil && strings.TrimSpace(cfg.BedrockModelID) != "" {
		if bedrock := sourcing.NewBedrockChatClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID); bedrock != nil {
			fallback = bedrock
		}
	}

	client := sourcing.NewFallbackChatClient(primary, fallback, logger)
	if client == nil {
		logger.Warn("assistant chat disabled (no GEMINI_API_KEY or BEDROCK_MODEL_ID)")
	} else {
		logger.Info("assistant chat enabled", "gemini", primary != nil, "bedrock_fallback", fallback != nil)
	}
	return sourcing.NewAssistant(client, m, logger), closeFn
}
