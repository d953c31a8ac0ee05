package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient 通过 eino 调用 OpenAI 兼容接口 (默认 Gemini)
type EinoClient struct {
	chatModel model.BaseChatModel
}

// NewEinoClient 创建 OpenAI 兼容客户端，timeout 为单次请求时限
func NewEinoClient(ctx context.Context, baseURL, apiKey, modelName string, timeout time.Duration) (*EinoClient, error) {
	chatModel, err := openai.NewChatModel(ctx, chatModelConfig(baseURL, apiKey, modelName, timeout))
	if err != nil {
		return nil, err
	}
	return NewEinoClientWithModel(chatModel), nil
}

func chatModelConfig(baseURL, apiKey, modelName string, timeout time.Duration) *openai.ChatModelConfig {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &openai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelName,
		Timeout: timeout,
	}
}

// NewEinoClientWithModel 使用已有的 ChatModel
func NewEinoClientWithModel(cm model.BaseChatModel) *EinoClient {
	return &EinoClient{chatModel: cm}
}

// Complete implements Client
func (c *EinoClient) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: system},
		{Role: schema.User, Content: user},
	}
	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
