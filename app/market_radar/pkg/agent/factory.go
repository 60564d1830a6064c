package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/iWorld-y/market_radar/app/market_radar/pkg/config"
)

// NewModel 根据配置创建模型后端，gemini 后端需要已初始化的 Vertex AI 客户端
func NewModel(ctx context.Context, cfg *config.Config, client *genai.Client) (Model, error) {
	switch cfg.Agent.Backend {
	case "", "gemini":
		if client == nil {
			return nil, fmt.Errorf("vertex ai client is not initialized")
		}
		return NewGeminiModel(client, cfg.Agent.Model), nil
	case "openai":
		if cfg.LLM.Model == "" {
			return nil, fmt.Errorf("llm model is missing")
		}
		return NewOpenAIModel(ctx, cfg.LLM)
	default:
		return nil, fmt.Errorf("unknown agent backend: %s", cfg.Agent.Backend)
	}
}
