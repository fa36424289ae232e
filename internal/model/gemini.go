package model

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"

	"digitalparbhani/backend/internal/config"
)

// GeminiClient calls models/{model}:generateContent on the Generative
// Language REST API.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
}

func NewGeminiClient(cfg config.Config) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, errors.Wrap(ErrNotConfigured, "GEMINI_API_KEY is not set")
	}
	modelName := strings.TrimPrefix(strings.TrimSpace(cfg.GeminiModel), "models/")
	if modelName == "" {
		return nil, errors.Wrap(ErrNotConfigured, "GEMINI_MODEL is not set")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/")
	if baseURL == "" {
		return nil, errors.Wrap(ErrNotConfigured, "GEMINI_BASE_URL is not set")
	}
	maxOutputTokens := cfg.AIMaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = defaultMaxOutputTokens
	}
	return &GeminiClient{
		apiKey:          apiKey,
		baseURL:         baseURL,
		model:           modelName,
		maxOutputTokens: maxOutputTokens,
		httpClient: &http.Client{
			Timeout: timeoutFromSeconds(cfg.AITimeoutSeconds),
		},
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiReply struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends prompt as one user turn. A 5xx reply is retried once.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("AI request input is empty")
	}

	request := geminiRequest{Contents: []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: prompt}},
	}}}
	request.GenerationConfig.MaxOutputTokens = c.maxOutputTokens
	payload, err := json.Marshal(request)
	if err != nil {
		return "", errors.Wrap(err, "encode gemini request")
	}

	reply, err := c.generateContent(ctx, payload)
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= http.StatusInternalServerError {
		reply, err = c.generateContent(ctx, payload)
	}
	if err != nil {
		if errors.As(err, &apiErr) {
			detail := strings.TrimSpace(apiErr.Message)
			if detail == "" {
				detail = TruncateForLog(apiErr.Body, 300)
			}
			return "", errors.Errorf("gemini error (%d): %s", apiErr.Code, detail)
		}
		return "", err
	}

	if reply.PromptFeedback != nil && reply.PromptFeedback.BlockReason != "" {
		return "", errors.Wrapf(ErrBlocked, "gemini block reason %s", reply.PromptFeedback.BlockReason)
	}
	answer, finishReason := reply.text()
	if answer == "" {
		if finishReason == "SAFETY" {
			return "", errors.Wrap(ErrBlocked, "gemini candidate stopped for safety")
		}
		return "", errors.Wrapf(ErrEmptyAnswer, "gemini finish reason %q", finishReason)
	}
	return answer, nil
}

func (c *GeminiClient) generateContent(ctx context.Context, payload []byte) (geminiReply, error) {
	endpoint := c.baseURL + "/models/" + url.PathEscape(c.model) + ":generateContent"
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return geminiReply{}, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("x-goog-api-key", c.apiKey)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return geminiReply{}, errors.Wrap(err, "gemini generate content request")
	}
	defer response.Body.Close()

	if err := googleapi.CheckResponse(response); err != nil {
		return geminiReply{}, err
	}
	var reply geminiReply
	if err := json.NewDecoder(response.Body).Decode(&reply); err != nil {
		return geminiReply{}, errors.Wrap(err, "decode gemini reply")
	}
	return reply, nil
}

// text joins the parts of the first candidate and returns its finish reason.
func (r geminiReply) text() (string, string) {
	if len(r.Candidates) == 0 {
		return "", ""
	}
	candidate := r.Candidates[0]
	if candidate.Content == nil {
		return "", candidate.FinishReason
	}
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String()), candidate.FinishReason
}
