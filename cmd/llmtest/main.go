// Command llmtest exercises the configured LLM provider chain from the
// command line: it sends a short coaching exchange through the same client
// the API server would build and prints the reply and token usage.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/satish27072002/mh-skills-coach/cmd/mainconfig"
	"github.com/satish27072002/mh-skills-coach/internal/app/bootstrap"
	"github.com/satish27072002/mh-skills-coach/internal/coach"
	appconfig "github.com/satish27072002/mh-skills-coach/internal/config"
	"github.com/satish27072002/mh-skills-coach/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}

	client, modelID, err := bootstrap.BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		log.Fatalf("failed to build LLM client: %v", err)
	}

	req := coach.LLMRequest{
		Model: modelID,
		System: []string{
			"You are a supportive mental health skills coach. Keep replies brief.",
		},
		Messages: []coach.ChatMessage{
			{Role: coach.ChatRoleUser, Content: "Work stress has been keeping me up at night."},
			{Role: coach.ChatRoleAssistant, Content: "That sounds exhausting. What part of the day feels hardest?"},
			{Role: coach.ChatRoleUser, Content: "Mostly the evenings, my mind keeps racing."},
		},
		MaxTokens:   200,
		Temperature: 0.7,
	}

	fmt.Printf("provider=%s model=%s\n\n", cfg.LLMProvider, modelID)

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "completion failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("reply (%s):\n%s\n\n", time.Since(start).Round(time.Millisecond), resp.Text)
	fmt.Printf("tokens: input=%d output=%d stop=%s\n",
		resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.StopReason)
}
