package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/satish27072002/mh-skills-coach/internal/coach"
	appconfig "github.com/satish27072002/mh-skills-coach/internal/config"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

// BuildLLMClient wires the configured LLM backend and reports the model id
// the responder should request. When both Bedrock and Gemini are configured
// the non-primary provider becomes the fallback so a regional outage on one
// side does not take the coach down.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (coach.LLMClient, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("bootstrap: nil config")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var bedrock coach.LLMClient
	if cfg.BedrockModelID != "" {
		bedrock = coach.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	}

	var gemini coach.LLMClient
	if cfg.GeminiAPIKey != "" {
		client, err := coach.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini client unavailable", "error", err)
		} else {
			gemini = client
		}
	}

	var client coach.LLMClient
	var modelID string
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "gemini":
		if gemini == nil {
			return nil, "", fmt.Errorf("bootstrap: gemini provider selected but GEMINI_API_KEY is not set")
		}
		client, modelID = gemini, cfg.GeminiModelID
		if bedrock != nil {
			logger.Info("llm fallback enabled", "primary", "gemini", "fallback", "bedrock")
			client = coach.NewFallbackLLMClient(gemini, bedrock, logger.Logger)
		}
	case "", "bedrock":
		if bedrock == nil {
			return nil, "", fmt.Errorf("bootstrap: bedrock provider selected but BEDROCK_MODEL_ID is not set")
		}
		client, modelID = bedrock, cfg.BedrockModelID
		if gemini != nil {
			logger.Info("llm fallback enabled", "primary", "bedrock", "fallback", "gemini")
			client = coach.NewFallbackLLMClient(bedrock, gemini, logger.Logger)
		}
	default:
		return nil, "", fmt.Errorf("bootstrap: unknown LLM provider %q", cfg.LLMProvider)
	}

	return coach.NewTimeoutLLMClient(client, cfg.LLMTimeout), modelID, nil
}
