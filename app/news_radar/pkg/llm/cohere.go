package llm

import (
	"context"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// CohereClient Cohere Chat 接口
type CohereClient struct {
	client *cohereclient.Client
	model  string
}

// NewCohereClient 创建 Cohere 客户端
func NewCohereClient(apiKey, modelName string, timeout time.Duration) *CohereClient {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &CohereClient{
		client: cohereclient.NewClient(
			cohereclient.WithToken(apiKey),
			cohereclient.WithHTTPClient(&http.Client{Timeout: timeout}),
		),
		model: modelName,
	}
}

// Complete implements Client
func (c *CohereClient) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message:  user,
		Model:    cohere.String(c.model),
		Preamble: cohere.String(system),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
