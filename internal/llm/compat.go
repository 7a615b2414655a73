package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// CompatProvider calls an OpenAI-compatible /chat/completions endpoint
// (GLM, NVIDIA NIM) that may not honor response_format. The schema is
// described in the system prompt and the JSON object is pulled out of the
// reply text.
type CompatProvider struct {
	name   string
	client openai.Client
	model  string
}

type compatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type compatRequest struct {
	Model       string          `json:"model"`
	Messages    []compatMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type compatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      compatMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func NewCompatProvider(name string, cfg CompatConfig) (*CompatProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", name)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s base URL is required", name)
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	)
	return &CompatProvider{name: name, client: client, model: cfg.Model}, nil
}

func (p *CompatProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	body := compatRequest{
		Model:       p.model,
		Messages:    buildCompatMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var out compatResponse
	if err := p.client.Post(ctx, "/chat/completions", body, &out); err != nil {
		return nil, mapCompatError(err)
	}
	if len(out.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: fmt.Errorf("%s: response has no choices", p.name)}
	}

	text := strings.TrimSpace(out.Choices[0].Message.Content)
	content := json.RawMessage(text)
	if req.Schema != nil {
		obj, ok := ExtractJSON(text)
		if !ok {
			return nil, &ErrInvalidResponse{
				Content: content,
				Err:     fmt.Errorf("%s: no JSON object in reply", p.name),
			}
		}
		content = obj
	}

	stop := stopEnd
	if out.Choices[0].FinishReason == "length" {
		stop = stopMaxTokens
	}
	model := out.Model
	if model == "" {
		model = p.model
	}
	return finish(req, &Response{
		Content: content,
		Usage: Usage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		},
		Model:      model,
		StopReason: stop,
	})
}

func (p *CompatProvider) ModelID() string {
	return p.model
}

func buildCompatMessages(req Request) []compatMessage {
	system := req.System
	if req.Schema != nil {
		def, err := json.Marshal(req.Schema.Definition)
		if err == nil {
			system = strings.TrimSpace(system + "\n\nRespond with only a JSON object matching this JSON Schema:\n" + string(def))
		}
	}

	msgs := make([]compatMessage, 0, len(req.Messages)+1)
	if system != "" {
		msgs = append(msgs, compatMessage{Role: "system", Content: system})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, compatMessage{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

func mapCompatError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, apiErr.Response, err)
	}
	return &ErrProviderUnavailable{Err: err}
}
