package match

import (
	"time"

	"peermatch-service/internal/model"
)

type Config struct {
	// MatchTimeout is the waiter record TTL and the horizon of every
	// expiresAt hint.
	MatchTimeout time.Duration
	// HandshakeTTL is an informational grace window stamped on a match;
	// it is not separately enforced here.
	HandshakeTTL      time.Duration
	FallbackThreshold time.Duration
	FallbackCheck     time.Duration
	MatchRecordTTL    time.Duration
	// StaleGrace is how long a sessionless match may live before a
	// re-join discards it.
	StaleGrace time.Duration
	// StaleSessionGrace applies when the session inspector is
	// unreachable: older matches are assumed stale.
	StaleSessionGrace time.Duration
	// StaleCeiling discards a match on re-join regardless of session
	// state.
	StaleCeiling      time.Duration
	SessionRetryDelay time.Duration
	ClaimTTL          time.Duration
}

func DefaultConfig() Config {
	return Config{
		MatchTimeout:      2 * time.Minute,
		HandshakeTTL:      15 * time.Second,
		FallbackThreshold: 60 * time.Second,
		FallbackCheck:     5 * time.Second,
		MatchRecordTTL:    3 * time.Minute,
		StaleGrace:        30 * time.Second,
		StaleSessionGrace: 60 * time.Second,
		StaleCeiling:      30 * time.Minute,
		SessionRetryDelay: 200 * time.Millisecond,
		ClaimTTL:          10 * time.Second,
	}
}

type JoinRequest struct {
	UserID     string
	Username   string
	Topics     []string
	Difficulty string
}

const (
	JoinStatusQueued         = "queued"
	JoinStatusMatched        = "matched"
	JoinStatusAlreadyMatched = "already_matched"

	StatusNotFound = "NOT_FOUND"
)

type JoinResult struct {
	Status    string     `json:"status"`
	UserID    string     `json:"userId,omitempty"`
	ExpiresAt int64      `json:"expiresAt,omitempty"`
	Match     *MatchView `json:"match,omitempty"`
}

// MatchView is the symmetric match payload returned by join.
type MatchView struct {
	MatchID            string         `json:"matchId"`
	UserA              string         `json:"userA"`
	UserAName          string         `json:"userAName"`
	UserB              string         `json:"userB"`
	UserBName          string         `json:"userBName"`
	Topic              string         `json:"topic"`
	Difficulty         string         `json:"difficulty"`
	CreatedAt          int64          `json:"createdAt"`
	HandshakeExpiresAt int64          `json:"handshakeExpiresAt"`
	SessionID          string         `json:"sessionId"`
	Question           model.Question `json:"question"`
}

func newMatchView(m *model.Match) *MatchView {
	return &MatchView{
		MatchID:            m.MatchID,
		UserA:              m.UserA,
		UserAName:          m.UserAName,
		UserB:              m.UserB,
		UserBName:          m.UserBName,
		Topic:              m.Topic,
		Difficulty:         m.Difficulty,
		CreatedAt:          m.CreatedAt,
		HandshakeExpiresAt: m.HandshakeExpiresAt,
		SessionID:          m.SessionID,
		Question:           m.Question,
	}
}

// MatchPayload is the caller-personalized match payload returned by
// GetStatus: ids and display names are resolved relative to the caller.
type MatchPayload struct {
	MatchID         string         `json:"matchId"`
	Topic           string         `json:"topic"`
	Difficulty      string         `json:"difficulty"`
	CreatedAt       int64          `json:"createdAt"`
	SessionID       string         `json:"sessionId"`
	UserID          string         `json:"userId"`
	Username        string         `json:"username"`
	PartnerID       string         `json:"partnerId"`
	PartnerUsername string         `json:"partnerUsername"`
	Question        model.Question `json:"question"`
}

type StatusResult struct {
	Status    string        `json:"status"`
	UserID    string        `json:"userId,omitempty"`
	EnqueueAt int64         `json:"enqueueAt,omitempty"`
	ExpiresAt int64         `json:"expiresAt,omitempty"`
	Match     *MatchPayload `json:"match,omitempty"`
}

type LeaveResult struct {
	Removed bool `json:"removed"`
}

type DisconnectRequest struct {
	MatchID         string
	RemainingUserID string
	Action          string
}

const (
	ActionSolo    = "solo"
	ActionRequeue = "requeue"

	ModeSolo     = "SOLO"
	ModeRequeued = "REQUEUED"
)

type DisconnectResult struct {
	OK        bool            `json:"ok"`
	Mode      string          `json:"mode,omitempty"`
	Question  *model.Question `json:"question,omitempty"`
	ExpiresAt int64           `json:"expiresAt,omitempty"`
}
