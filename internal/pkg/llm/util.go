package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

func (g *ModelGenerator) fetchModel(ctx context.Context, userPrompt string, temp float64) (*llms.ContentResponse, error) {
	if err := g.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer g.limiter.Release()

	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(userPrompt),
			},
		},
	}
	log.DebugContext(ctx, "正在请求AI大模型")
	return g.model.GenerateContent(ctx, messages,
		llms.WithModel(g.textModel),
		llms.WithTemperature(temp),
		llms.WithMaxTokens(256),
	)
}

// StubGenerator 离线使用的确定性生成器，相同 seed 与 prompt 输出一致
type StubGenerator struct {
	Seed string
}

func (g *StubGenerator) Generate(_ context.Context, prompt string, maxChars int) (string, error) {
	sum := sha256.Sum256([]byte(g.Seed + prompt))
	digest := hex.EncodeToString(sum[:])
	body := "SignalForge draft: A concise, original insight derived from sources. Ref " + digest[:24] + "."
	return Truncate(body, maxChars), nil
}

// Truncate 去除首尾空白后按字符截断
func Truncate(text string, maxChars int) string {
	text = strings.TrimSpace(text)
	if maxChars > 0 {
		runes := []rune(text)
		if len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	return strings.TrimSpace(text)
}

// Prompts 按格式名加载的提示词模板
type Prompts map[string]string

// LoadPrompts 读取 dir 下的 <format>.txt
func LoadPrompts(dir string, formats ...string) (Prompts, error) {
	prompts := make(Prompts, len(formats))
	for _, format := range formats {
		data, err := os.ReadFile(filepath.Join(dir, format+".txt"))
		if err != nil {
			return nil, fmt.Errorf("读取prompt文件失败 %s: %w", format, err)
		}
		prompts[format] = string(data)
	}
	return prompts, nil
}

// Render 替换 {title} {summary} {url} 占位符
func Render(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
