package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iWorld-y/news_radar/app/news_radar/pkg/config"
	"github.com/iWorld-y/news_radar/app/news_radar/pkg/logger"
)

// ErrNotConfigured 未配置 LLM
var ErrNotConfigured = errors.New("llm not configured")

// Client 文本补全接口
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// New 按配置创建带限流的 LLM 客户端
func New(ctx context.Context, cfg config.LLMConfig, cc config.ConcurrencyConfig) (Client, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	var (
		c   Client
		err error
	)
	switch cfg.Provider {
	case "cohere":
		c = NewCohereClient(cfg.APIKey, cfg.Model, cfg.Timeout)
	case "openai", "":
		c, err = NewEinoClient(ctx, cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}
	return NewLimited(c, cc.QPS, cc.RPM), nil
}

// Limited 对底层客户端做限流，并在 429 时指数退避重试
type Limited struct {
	client     Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
}

// NewLimited 创建限流客户端，rpm 为每分钟请求数，qps 为突发量
func NewLimited(c Client, qps, rpm int) *Limited {
	if qps <= 0 {
		qps = 1
	}
	if rpm <= 0 {
		rpm = 60
	}
	return &Limited{
		client:     c,
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), qps),
		maxRetries: 3,
		baseDelay:  2 * time.Second,
	}
}

// Complete implements Client
func (l *Limited) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	for i := 0; i <= l.maxRetries; i++ {
		if err := l.limiter.Wait(ctx); err != nil {
			return "", err
		}
		out, err := l.client.Complete(ctx, system, user)
		if err == nil {
			return out, nil
		}
		if !isRateLimited(err) {
			return "", err
		}
		lastErr = err
		if i == l.maxRetries {
			break
		}
		delay := l.baseDelay * time.Duration(1<<i)
		logger.Log.Warnf("LLM 触发限流，%v 后重试: %v", delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("failed after retries: %w", lastErr)
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

// ExtractJSON 去掉 markdown 代码块，截取第一个 '{' 到最后一个 '}'
func ExtractJSON(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// StripTrailingCommas 去掉 '}' 或 ']' 前多余的逗号
func StripTrailingCommas(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			sb.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			sb.WriteByte(ch)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && strings.ContainsRune(" \t\r\n", rune(s[j])) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}
