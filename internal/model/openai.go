package model

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"digitalparbhani/backend/internal/config"
)

const defaultMaxOutputTokens = 2048

// OpenAIResponsesClient calls the OpenAI Responses API over plain HTTP.
type OpenAIResponsesClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
}

func NewOpenAIResponsesClient(cfg config.Config) *OpenAIResponsesClient {
	return &OpenAIResponsesClient{
		apiKey:          strings.TrimSpace(cfg.OpenAIAPIKey),
		baseURL:         strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"),
		model:           strings.TrimSpace(cfg.OpenAIModel),
		maxOutputTokens: cfg.AIMaxOutputTokens,
		httpClient: &http.Client{
			Timeout: timeoutFromSeconds(cfg.AITimeoutSeconds),
		},
	}
}

type inputText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type inputBlock struct {
	Role    string      `json:"role"`
	Content []inputText `json:"content"`
}

// Generate sends prompt as a single user turn. A 5xx reply is retried once,
// and a reply cut short by max_output_tokens is retried once with double
// the budget.
func (c *OpenAIResponsesClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.Wrap(ErrNotConfigured, "OPENAI_API_KEY is not set")
	}
	if c.baseURL == "" {
		return "", errors.Wrap(ErrNotConfigured, "OPENAI_BASE_URL is not set")
	}
	if c.model == "" {
		return "", errors.Wrap(ErrNotConfigured, "OPENAI_MODEL is not set")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("AI request input is empty")
	}

	input := []inputBlock{{
		Role:    "user",
		Content: []inputText{{Type: "input_text", Text: prompt}},
	}}

	budget := c.maxOutputTokens
	if budget <= 0 {
		budget = defaultMaxOutputTokens
	}

	statusCode, body, err := c.callResponses(ctx, input, budget)
	if err != nil {
		return "", err
	}
	if statusCode >= http.StatusInternalServerError {
		statusCode, body, err = c.callResponses(ctx, input, budget)
		if err != nil {
			return "", err
		}
	}
	if statusCode < 200 || statusCode >= 300 {
		return "", errors.Errorf("openai responses error (%d): %s", statusCode, strings.TrimSpace(string(body)))
	}

	reply, err := decodeResponsesReply(body)
	if err != nil {
		return "", err
	}
	if reply.answer() == "" && reply.cutByBudget() {
		statusCode, body, err = c.callResponses(ctx, input, budget*2)
		if err != nil {
			return "", err
		}
		if statusCode < 200 || statusCode >= 300 {
			return "", errors.Errorf("openai responses error (%d): %s", statusCode, strings.TrimSpace(string(body)))
		}
		if reply, err = decodeResponsesReply(body); err != nil {
			return "", err
		}
		if reply.answer() == "" && reply.cutByBudget() {
			return "", errors.Wrap(ErrEmptyAnswer, "openai reply still cut off by max_output_tokens")
		}
	}
	answer := reply.answer()
	if answer == "" {
		return "", errors.Wrapf(ErrEmptyAnswer, "openai reply had no text: %s", TruncateForLog(string(body), 1200))
	}
	return answer, nil
}

func (c *OpenAIResponsesClient) callResponses(ctx context.Context, input []inputBlock, maxTokens int) (int, []byte, error) {
	payload := map[string]any{
		"model":             c.model,
		"input":             input,
		"max_output_tokens": maxTokens,
		"reasoning": map[string]any{
			"effort": "low",
		},
		"text": map[string]any{
			"verbosity": "low",
		},
	}
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(bodyRaw))
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, errors.Wrap(err, "openai responses request")
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "read openai response body")
	}
	return response.StatusCode, responseBody, nil
}

// responsesReply is the subset of a Responses API reply the assistant reads.
type responsesReply struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string       `json:"type"`
			Text responseText `json:"text"`
		} `json:"content"`
	} `json:"output"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
}

// responseText accepts both "text": "..." and "text": {"value": "..."}.
type responseText string

func (t *responseText) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*t = responseText(plain)
		return nil
	}
	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil
	}
	*t = responseText(wrapped.Value)
	return nil
}

func decodeResponsesReply(body []byte) (responsesReply, error) {
	var reply responsesReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return responsesReply{}, errors.Wrapf(err, "decode openai reply: %s", TruncateForLog(string(body), 200))
	}
	return reply, nil
}

// answer joins every text block of the reply, preferring the flattened
// output_text field when the API provides it.
func (r responsesReply) answer() string {
	if direct := strings.TrimSpace(r.OutputText); direct != "" {
		return direct
	}
	var texts []string
	for _, item := range r.Output {
		for _, block := range item.Content {
			kind := strings.ToLower(strings.TrimSpace(block.Type))
			if kind != "output_text" && kind != "text" {
				continue
			}
			if text := strings.TrimSpace(string(block.Text)); text != "" {
				texts = append(texts, text)
			}
		}
	}
	return strings.Join(texts, "\n")
}

func (r responsesReply) cutByBudget() bool {
	return r.IncompleteDetails != nil &&
		strings.EqualFold(strings.TrimSpace(r.IncompleteDetails.Reason), "max_output_tokens")
}
