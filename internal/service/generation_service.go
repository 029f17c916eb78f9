package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gembot-go/internal/config"
	"gembot-go/internal/model"
	"gembot-go/pkg/gemini"
	"gembot-go/pkg/log"
	"gembot-go/pkg/textutil"
)

// 上下文装配的固定预算：最多带 4 轮最近历史，每轮截断到 200 字符。
// 无论历史多长，提示词体积都有上界。
const (
	contextHistoryTurns = 4
	contextSnippetRunes = 200
)

// GenerationService 将用户消息与有界历史装配为提示词，调用生成后端，
// 并把瞬时失败隐藏在有界的重试策略之后。
type GenerationService interface {
	// Generate 返回生成文本；失败时返回分类后的错误值，
	// 调用方通过 gemini.ClassifyError 分支而非嗅探字符串。
	Generate(ctx context.Context, message string, history []model.ChatMessage, plan string) (string, error)
}

type generationService struct {
	client gemini.Client
	cfg    config.GeminiConfig
	// sleep 可注入以便测试验证退避节奏
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGenerationService 创建一个新的 GenerationService 实例。
func NewGenerationService(client gemini.Client, cfg config.GeminiConfig) GenerationService {
	return &generationService{
		client: client,
		cfg:    cfg,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Generate 以指数退避重试瞬时失败；限流与模型缺失立即终止。
// 状态机：Attempting(n) → 成功 → Done；
// 超时/空响应且 n < max → 退避后 Attempting(n+1)，n == max → Exhausted；
// 限流/模型缺失 → 立即终态，不退避。
func (s *generationService) Generate(ctx context.Context, message string, history []model.ChatMessage, plan string) (string, error) {
	prompt := s.buildContext(message, history, plan)
	maxAttempts := s.cfg.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := s.cfg.BaseBackoff()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		log.Infof("Generation attempt %d/%d", attempt, maxAttempts)

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout())
		text, err := s.client.GenerateContent(callCtx, prompt)
		cancel()

		if err == nil {
			log.Infof("Generation succeeded (length: %d)", len(text))
			return s.postProcess(text), nil
		}
		lastErr = err
		log.Warnf("Generation attempt %d failed: %v", attempt, err)

		switch gemini.ClassifyError(err) {
		case gemini.KindRateLimited, gemini.KindModelNotFound:
			// 重试只会加剧限流；模型缺失需要运维介入。立即终止。
			return "", err
		}

		if attempt < maxAttempts {
			if serr := s.sleep(ctx, backoff); serr != nil {
				return "", serr
			}
			backoff *= 2
		}
	}

	log.Errorf("All %d generation attempts exhausted", maxAttempts)
	return "", fmt.Errorf("all %d generation attempts failed: %w", maxAttempts, lastErr)
}

// buildContext 装配有界提示词：人设 + 套餐标注 + 最近历史 + 当前消息。
func (s *generationService) buildContext(message string, history []model.ChatMessage, plan string) string {
	var sb strings.Builder
	if s.cfg.Personality != "" {
		sb.WriteString(strings.TrimSpace(s.cfg.Personality))
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("[信息：当前套餐 '%s']\n\n", plan))

	if len(history) > 0 {
		if len(history) > contextHistoryTurns {
			history = history[len(history)-contextHistoryTurns:]
		}
		sb.WriteString("=== 历史 ===\n")
		for _, m := range history {
			label := "👤"
			if m.Role == model.RoleAssistant {
				label = "🤖"
			}
			sb.WriteString(fmt.Sprintf("%s: %s\n", label, truncateRunes(m.Content, contextSnippetRunes)))
		}
		sb.WriteString("=== 结束 ===\n\n")
	}

	sb.WriteString(fmt.Sprintf("👤: %s\n🤖:", message))
	return sb.String()
}

// postProcess 清理角色标签回显并硬截断到配置的最大长度。
func (s *generationService) postProcess(text string) string {
	text = textutil.CleanResponse(text)
	maxLen := s.cfg.MaxMessageLength
	if maxLen > 0 && utf8.RuneCountInString(text) > maxLen {
		text = truncateRunes(text, maxLen) + "\n\n...(已截断)"
	}
	return text
}

// truncateRunes 把文本截断到不超过 n 个字符。
func truncateRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
