// Package gemini 提供了调用生成式文本后端的客户端。
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gembot-go/internal/config"
)

// Client 定义了生成后端的调用接口。
type Client interface {
	// GenerateContent 以完整上下文文本调用后端，返回生成的文本。
	// 失败时返回 *APIError，调用方可据此分类处理。
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// ErrorKind 标识后端调用失败的类别。
type ErrorKind int

const (
	// KindUnknown 表示未能归类的失败。
	KindUnknown ErrorKind = iota
	// KindRateLimited 表示后端限流或配额耗尽（HTTP 429）。
	KindRateLimited
	// KindModelNotFound 表示配置的模型不存在（HTTP 404）。
	KindModelNotFound
	// KindTimeout 表示单次调用超时。
	KindTimeout
	// KindEmpty 表示后端返回了空响应。
	KindEmpty
)

// APIError 携带分类信息的后端调用错误。
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

// Error 实现 error 接口。
func (e *APIError) Error() string {
	return fmt.Sprintf("gemini api error (kind=%d, status=%d): %s", e.Kind, e.Status, e.Message)
}

// ClassifyError 返回错误的分类；非 *APIError 一律归为 KindUnknown。
func ClassifyError(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

type geminiClient struct {
	cfg    config.GeminiConfig
	client *http.Client
}

// NewClient 基于配置创建一个生成后端客户端。
func NewClient(cfg config.GeminiConfig) Client {
	return &geminiClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateContent 调用 generateContent 接口并返回拼接后的文本。
func (c *geminiClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	// 从全局配置注入生成参数（若非零值）
	gen := &generationConfig{}
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		gen.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		gen.TopP = &p
	}
	if c.cfg.Generation.TopK != 0 {
		k := c.cfg.Generation.TopK
		gen.TopK = &k
	}
	if c.cfg.Generation.MaxOutputTokens != 0 {
		m := c.cfg.Generation.MaxOutputTokens
		gen.MaxOutputTokens = &m
	}
	if gen.Temperature != nil || gen.TopP != nil || gen.TopK != nil || gen.MaxOutputTokens != nil {
		reqBody.GenerationConfig = gen
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", &APIError{Kind: KindTimeout, Message: err.Error()}
		}
		return "", fmt.Errorf("failed to call generate api: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, string(bodyBytes))
	}

	var genResp generateResponse
	if err := json.Unmarshal(bodyBytes, &genResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generate response: %w", err)
	}

	var sb strings.Builder
	if len(genResp.Candidates) > 0 {
		for _, p := range genResp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &APIError{Kind: KindEmpty, Status: resp.StatusCode, Message: "empty response from backend"}
	}
	return text, nil
}

// classifyStatus 将非 200 的响应状态归类为 APIError。
func classifyStatus(status int, body string) *APIError {
	switch {
	case status == http.StatusTooManyRequests || strings.Contains(strings.ToLower(body), "quota"):
		return &APIError{Kind: KindRateLimited, Status: status, Message: body}
	case status == http.StatusNotFound:
		return &APIError{Kind: KindModelNotFound, Status: status, Message: body}
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return &APIError{Kind: KindTimeout, Status: status, Message: body}
	default:
		return &APIError{Kind: KindUnknown, Status: status, Message: body}
	}
}
