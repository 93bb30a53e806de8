package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/arin/wordpeek/internal/config"
)

const pingMessage = "Hello, this is a test connection."

// endpointDoer sends every request to the configured endpoint. Settings hold
// the full chat-completions URL, while go-openai derives paths from a base URL.
type endpointDoer struct {
	endpoint *url.URL
	client   *http.Client
}

func (d endpointDoer) Do(req *http.Request) (*http.Response, error) {
	u := *d.endpoint
	req.URL = &u
	req.Host = u.Host
	return d.client.Do(req)
}

// Ping sends a tiny non-streaming completion to check that the endpoint,
// key and model work. It returns the model's reply.
func Ping(ctx context.Context, s config.Settings, httpClient *http.Client) (string, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return "", ErrMissingAPIKey
	}
	endpoint, err := url.Parse(s.APIURL)
	if err != nil || endpoint.Host == "" {
		return "", fmt.Errorf("invalid api url %q", s.APIURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	cfg := openai.DefaultConfig(s.APIKey)
	cfg.BaseURL = strings.TrimSuffix(s.APIURL, "/chat/completions")
	cfg.HTTPClient = endpointDoer{endpoint: endpoint, client: httpClient}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: pingMessage},
		},
		MaxTokens: 10,
	})
	if err != nil {
		return "", pingError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func pingError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &HTTPError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &HTTPError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	return &TransportError{Err: err}
}
