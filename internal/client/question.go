// Package client holds the HTTP clients for the question catalog and the
// collaboration session service. Both collaborators are best-effort: the
// match service degrades gracefully when they fail.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"peermatch-service/internal/model"
)

type QuestionClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewQuestionClient(baseURL string, timeout time.Duration) *QuestionClient {
	return &QuestionClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchRandom asks the question service for a random question matching
// topic and difficulty.
func (c *QuestionClient) FetchRandom(ctx context.Context, topic, difficulty string) (model.Question, error) {
	var question model.Question

	endpoint := fmt.Sprintf("%s/questions/random?topic=%s&difficulty=%s",
		c.baseURL, url.QueryEscape(topic), url.QueryEscape(difficulty))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return question, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return question, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return question, fmt.Errorf("question service returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&question); err != nil {
		return question, err
	}
	return question, nil
}
