package embedding

import (
	"context"
	"errors"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/corpusd/corpusd/internal/config"
)

// FromConfig initializes Genkit with the configured provider plugin and
// returns the deployment Embedder.
//
// Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName); reads GEMINI_API_KEY directly
//   - ollama: explicit DefineEmbedder, keyed by server address
func FromConfig(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit registration (no auto-discovery)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		slog.Info("initialized embedder with ollama provider",
			"model", cfg.EmbedderModel, "host", cfg.OllamaHost, "dimension", cfg.EmbedderDimension)
		return NewGenkit(ollama.Embedder(g, cfg.OllamaHost), cfg.EmbedderDimension), nil

	default: // "gemini"
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		slog.Info("initialized embedder with gemini provider",
			"model", cfg.EmbedderModel, "dimension", cfg.EmbedderDimension)
		return NewGenkit(googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel), cfg.EmbedderDimension), nil
	}
}
