package llm

import (
	"Signalforge/internal/api/config"
	"context"
	"fmt"
	log "log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator 文本生成接口
type Generator interface {
	Generate(ctx context.Context, prompt string, maxChars int) (string, error)
}

// NewGenerator 配置了 URL 时走 OpenAI 兼容接口，否则返回确定性桩
func NewGenerator(cfg config.LLMConfig) (Generator, error) {
	if cfg.URL == "" {
		log.Info("LLM url not configured, using stub generator")
		return &StubGenerator{Seed: cfg.Seed}, nil
	}

	model, err := openai.New(
		openai.WithModel(cfg.TextModel),
		openai.WithToken(cfg.ApiKey),
		openai.WithBaseURL(cfg.URL),
	)
	if err != nil {
		log.Error("AI大模型初始化失败", "err", err)
		return nil, fmt.Errorf("init llm: %w", err)
	}

	return NewModelGenerator(model, cfg.TextModel, cfg.MaxConcurrency,
		time.Duration(cfg.TimeoutSeconds)*time.Second), nil
}

// ModelGenerator 基于 langchaingo 模型的生成器
type ModelGenerator struct {
	model     llms.Model
	textModel string
	limiter   *Limiter
	timeout   time.Duration
}

func NewModelGenerator(model llms.Model, textModel string, concurrency int64, timeout time.Duration) *ModelGenerator {
	return &ModelGenerator{
		model:     model,
		textModel: textModel,
		limiter:   NewLimiter(concurrency),
		timeout:   timeout,
	}
}

func (g *ModelGenerator) Generate(ctx context.Context, prompt string, maxChars int) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.fetchModel(ctx, prompt, 0.7)
	if err != nil {
		log.ErrorContext(ctx, "AI大模型请求失败", "err", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return Truncate(resp.Choices[0].Content, maxChars), nil
}
