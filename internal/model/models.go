package model

import (
	"encoding/json"
	"strconv"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Difficulties is ordered easiest to hardest; fallback matching walks
// adjacent indices.
var Difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

const (
	StatusWaiting      = "WAITING"
	StatusMatched      = "MATCHED"
	StatusDisconnected = "DISCONNECTED"
	StatusSolo         = "SOLO"
)

type Question struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	Topic       string `json:"topic"`
}

// Waiter is one user's queue record. It is stored as a flat string map so
// partial field updates (status flips) stay single-key atomic.
type Waiter struct {
	UserID             string
	Username           string
	SelectedTopics     []string
	SelectedDifficulty string
	EnqueueAt          int64 // unix ms
	Status             string
	MatchID            string
}

func (w *Waiter) ToMap() map[string]string {
	topics, _ := json.Marshal(w.SelectedTopics)
	// matchId is always written so that re-enqueueing over an old record
	// clears a stale match reference
	return map[string]string{
		"userId":             w.UserID,
		"username":           w.Username,
		"selectedTopics":     string(topics),
		"selectedDifficulty": w.SelectedDifficulty,
		"enqueueAt":          strconv.FormatInt(w.EnqueueAt, 10),
		"status":             w.Status,
		"matchId":            w.MatchID,
	}
}

func WaiterFromMap(m map[string]string) *Waiter {
	if len(m) == 0 {
		return nil
	}
	w := &Waiter{
		UserID:             m["userId"],
		Username:           m["username"],
		SelectedDifficulty: m["selectedDifficulty"],
		Status:             m["status"],
		MatchID:            m["matchId"],
	}
	w.EnqueueAt, _ = strconv.ParseInt(m["enqueueAt"], 10, 64)
	if raw := m["selectedTopics"]; raw != "" {
		// tolerate junk topics, the record is still usable for status
		_ = json.Unmarshal([]byte(raw), &w.SelectedTopics)
	}
	return w
}

// Match is the pairing record. Question is denormalized at creation so a
// solo continuation never depends on the question service being up.
type Match struct {
	MatchID            string
	UserA              string
	UserAName          string
	UserB              string
	UserBName          string
	Topic              string
	Difficulty         string
	CreatedAt          int64 // unix ms
	HandshakeExpiresAt int64 // unix ms
	Closed             bool
	SessionID          string
	Question           Question
}

func (m *Match) ToMap() map[string]string {
	question, _ := json.Marshal(m.Question)
	return map[string]string{
		"matchId":            m.MatchID,
		"userA":              m.UserA,
		"userAName":          m.UserAName,
		"userB":              m.UserB,
		"userBName":          m.UserBName,
		"topic":              m.Topic,
		"difficulty":         m.Difficulty,
		"createdAt":          strconv.FormatInt(m.CreatedAt, 10),
		"handshakeExpiresAt": strconv.FormatInt(m.HandshakeExpiresAt, 10),
		"closed":             strconv.FormatBool(m.Closed),
		"sessionId":          m.SessionID,
		"question":           string(question),
	}
}

func MatchFromMap(raw map[string]string) *Match {
	if len(raw) == 0 {
		return nil
	}
	m := &Match{
		MatchID:    raw["matchId"],
		UserA:      raw["userA"],
		UserAName:  raw["userAName"],
		UserB:      raw["userB"],
		UserBName:  raw["userBName"],
		Topic:      raw["topic"],
		Difficulty: raw["difficulty"],
		Closed:     raw["closed"] == "true",
		SessionID:  raw["sessionId"],
	}
	m.CreatedAt, _ = strconv.ParseInt(raw["createdAt"], 10, 64)
	m.HandshakeExpiresAt, _ = strconv.ParseInt(raw["handshakeExpiresAt"], 10, 64)
	if raw["question"] != "" {
		// parse failures leave an empty question, never fail the read
		_ = json.Unmarshal([]byte(raw["question"]), &m.Question)
	}
	return m
}

// Partner returns the other participant's id, or "" when userID is not
// part of the match.
func (m *Match) Partner(userID string) string {
	switch userID {
	case m.UserA:
		return m.UserB
	case m.UserB:
		return m.UserA
	}
	return ""
}

func (m *Match) Involves(userID string) bool {
	return m.UserA == userID || m.UserB == userID
}
