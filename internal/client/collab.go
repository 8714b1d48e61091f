package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"peermatch-service/internal/model"
)

const SessionEnded = "ended"

type CollabClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCollabClient(baseURL string, timeout time.Duration) *CollabClient {
	return &CollabClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SessionRequest carries everything the collaboration service needs to
// open a live session for a freshly matched pair. The question fields are
// flattened alongside the full snapshot because the collaboration service
// consumes both shapes.
type SessionRequest struct {
	UserA      string
	UserAName  string
	UserB      string
	UserBName  string
	Topic      string
	Difficulty string
	Question   model.Question
}

type createSessionPayload struct {
	UserA               string         `json:"userA"`
	UserB               string         `json:"userB"`
	UserAName           string         `json:"userAName"`
	UserBName           string         `json:"userBName"`
	Topic               string         `json:"topic"`
	Difficulty          string         `json:"difficulty"`
	QuestionID          string         `json:"questionId"`
	QuestionTitle       string         `json:"questionTitle"`
	QuestionDescription string         `json:"questionDescription"`
	QuestionDifficulty  string         `json:"questionDifficulty"`
	QuestionTopic       string         `json:"questionTopic"`
	Question            model.Question `json:"question"`
}

// Create provisions a live collaboration session and returns its id.
func (c *CollabClient) Create(ctx context.Context, req SessionRequest) (string, error) {
	questionDifficulty := req.Question.Difficulty
	if questionDifficulty == "" {
		questionDifficulty = req.Difficulty
	}
	questionTopic := req.Question.Topic
	if questionTopic == "" {
		questionTopic = req.Topic
	}

	body, err := json.Marshal(createSessionPayload{
		UserA:               req.UserA,
		UserB:               req.UserB,
		UserAName:           req.UserAName,
		UserBName:           req.UserBName,
		Topic:               req.Topic,
		Difficulty:          req.Difficulty,
		QuestionID:          req.Question.ID,
		QuestionTitle:       req.Question.Title,
		QuestionDescription: req.Question.Description,
		QuestionDifficulty:  questionDifficulty,
		QuestionTopic:       questionTopic,
		Question:            req.Question,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("collab service returned %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// Status reports the session's lifecycle state. A missing session is
// (status "", found false, nil error), not an error: callers use it as a
// staleness signal.
func (c *CollabClient) Status(ctx context.Context, sessionID string) (string, bool, error) {
	endpoint := fmt.Sprintf("%s/sessions/%s", c.baseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("collab service returned %d", resp.StatusCode)
	}

	var payload struct {
		Session struct {
			Status string `json:"status"`
		} `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", false, err
	}
	return payload.Session.Status, true, nil
}
