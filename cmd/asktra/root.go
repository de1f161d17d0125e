package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asktra-labs/asktra/internal/config"
	"github.com/asktra-labs/asktra/internal/dataset"
	"github.com/asktra-labs/asktra/internal/pipeline"
	"github.com/asktra-labs/asktra/internal/prompts"
	"github.com/asktra-labs/asktra/internal/store"
	"github.com/asktra-labs/asktra/pkg/llm"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "asktra",
	Short: "Causal Q&A over engineering history",
	Long:  "Answers why-questions about a software system by cross-referencing team chat, git history, tickets and docs through a hosted model, and emits reconciliation artifacts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is a local convenience; absence is fine.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// appEnv bundles the long-lived collaborators commands work with.
type appEnv struct {
	Client       llm.Client
	BundleClient llm.Client
	Data         *dataset.Provider
	Prompts      *prompts.Store
	Archive      store.Store // nil when disabled
	Pipeline     *pipeline.Pipeline
}

func (e *appEnv) Close() {
	if e.Archive != nil {
		e.Archive.Close()
	}
}

func initApp(ctx context.Context) (*appEnv, error) {
	client, err := llm.New(ctx, llm.Config{
		Model:           cfg.Gemini.Model,
		GeminiAPIKey:    cfg.Gemini.APIKey,
		AnthropicAPIKey: cfg.Anthropic.APIKey,
		ThinkingLevel:   cfg.Gemini.ThinkingLevel,
		RPS:             cfg.LLM.RPS,
		Burst:           cfg.LLM.Burst,
		Timeout:         time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	bundleClient := client
	if cfg.Bundle.APIKey != "" || cfg.Bundle.Model != "" {
		model := cfg.Bundle.Model
		if model == "" {
			model = cfg.Gemini.Model
		}
		key := cfg.Bundle.APIKey
		if key == "" {
			key = cfg.Gemini.APIKey
		}
		bundleClient, err = llm.New(ctx, llm.Config{
			Model:           model,
			GeminiAPIKey:    key,
			AnthropicAPIKey: cfg.Anthropic.APIKey,
			RPS:             cfg.LLM.RPS,
			Burst:           cfg.LLM.Burst,
			Timeout:         time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
	}

	promptStore, err := prompts.NewStore(cfg.Prompts.Dir)
	if err != nil {
		return nil, err
	}

	var archive store.Store
	if cfg.Store.Driver != "none" {
		archive, err = store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
	}

	data := dataset.NewProvider(cfg.Dataset.Dir)

	return &appEnv{
		Client:       client,
		BundleClient: bundleClient,
		Data:         data,
		Prompts:      promptStore,
		Archive:      archive,
		Pipeline:     pipeline.New(client, data, promptStore, archive),
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
