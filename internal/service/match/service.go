// Package match implements the matchmaking queue: users wait in per
// (topic, difficulty) lanes inside a remote key-value/sorted-set store and
// get paired on shared topic and difficulty, falling back to adjacent
// difficulties after a threshold. Correctness leans on idempotent,
// self-healing reconciliation rather than cross-key transactions: the
// store is only atomic per key.
package match

import (
	"context"
	"fmt"
	"sync"
	"time"

	"peermatch-service/internal/client"
	"peermatch-service/internal/model"
	"peermatch-service/internal/store"
	appErr "peermatch-service/pkg/errors"
	"peermatch-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuestionProvider supplies a question for a (topic, difficulty) pair.
// Failures are absorbed by the caller with a placeholder question.
type QuestionProvider interface {
	FetchRandom(ctx context.Context, topic, difficulty string) (model.Question, error)
}

// SessionClient provisions and inspects live collaboration sessions.
type SessionClient interface {
	Create(ctx context.Context, req client.SessionRequest) (string, error)
	Status(ctx context.Context, sessionID string) (status string, found bool, err error)
}

type Service struct {
	store     store.Store
	questions QuestionProvider
	sessions  SessionClient
	cfg       Config

	now   func() time.Time
	newID func() string

	startOnce sync.Once
}

func NewService(st store.Store, questions QuestionProvider, sessions SessionClient, cfg Config) *Service {
	return &Service{
		store:     st,
		questions: questions,
		sessions:  sessions,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *Service) nowMs() int64 {
	return s.now().UnixMilli()
}

// Join registers (or re-registers) a user as waiting and immediately
// attempts a match. A user whose previous match is still live gets
// already_matched back; stale previous matches are reconciled away first.
func (s *Service) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	existing, err := s.loadWaiter(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.Status == model.StatusMatched {
		res, err := s.reconcileExistingMatch(ctx, req.UserID, existing.MatchID)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	// start fresh, whatever was there before
	if err := s.store.Delete(ctx, waiterKey(req.UserID)); err != nil {
		return nil, err
	}

	enqueueAt := s.nowMs()
	waiter := &model.Waiter{
		UserID:             req.UserID,
		Username:           req.Username,
		SelectedTopics:     req.Topics,
		SelectedDifficulty: req.Difficulty,
		EnqueueAt:          enqueueAt,
		Status:             model.StatusWaiting,
	}
	if err := s.store.SetMap(ctx, waiterKey(req.UserID), waiter.ToMap()); err != nil {
		return nil, err
	}
	for _, topic := range req.Topics {
		if err := s.store.ZAdd(ctx, laneKey(topic, req.Difficulty), float64(enqueueAt), req.UserID); err != nil {
			return nil, err
		}
	}
	if err := s.store.Expire(ctx, waiterKey(req.UserID), s.cfg.MatchTimeout); err != nil {
		return nil, err
	}

	logger.Log.Info("user joined queue",
		zap.String("userID", req.UserID),
		zap.Strings("topics", req.Topics),
		zap.String("difficulty", req.Difficulty),
	)

	result, err := s.tryMatchForUser(ctx, waiter)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}
	return &JoinResult{
		Status:    JoinStatusQueued,
		UserID:    req.UserID,
		ExpiresAt: enqueueAt + s.cfg.MatchTimeout.Milliseconds(),
	}, nil
}

// reconcileExistingMatch decides whether a MATCHED waiter's match is still
// live. A non-nil result means the caller should return already_matched; a
// nil result means the stale state was discarded and join may proceed.
func (s *Service) reconcileExistingMatch(ctx context.Context, userID, matchID string) (*JoinResult, error) {
	m, err := s.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if m == nil || m.Closed {
		s.discardMatch(ctx, userID, matchID, m)
		return nil, nil
	}

	age := s.nowMs() - m.CreatedAt
	stale := m.SessionID == "" && age > s.cfg.StaleGrace.Milliseconds()

	if m.SessionID != "" {
		status, found, err := s.sessions.Status(ctx, m.SessionID)
		if err != nil {
			// unreachable inspector is a staleness signal, not a failure
			stale = age > s.cfg.StaleSessionGrace.Milliseconds()
			logger.Log.Warn("session check failed, falling back to age",
				zap.String("sessionID", m.SessionID),
				zap.Int64("ageMs", age),
				zap.Error(err),
			)
		} else if !found || status == client.SessionEnded {
			stale = true
		}
	}

	if stale || age > s.cfg.StaleCeiling.Milliseconds() {
		logger.Log.Info("discarding stale match on rejoin",
			zap.String("userID", userID),
			zap.String("matchID", matchID),
			zap.Int64("ageMs", age),
		)
		s.discardMatch(ctx, userID, matchID, m)
		return nil, nil
	}

	return &JoinResult{Status: JoinStatusAlreadyMatched, Match: newMatchView(m)}, nil
}

// discardMatch tears down a stale match and both participants' waiter
// records. Best-effort: every step is idempotent and a failed step only
// leaves state the next reconciliation pass can repair.
func (s *Service) discardMatch(ctx context.Context, userID, matchID string, m *model.Match) {
	if m != nil {
		if other := m.Partner(userID); other != "" && other != userID {
			otherWaiter, err := s.loadWaiter(ctx, other)
			if err == nil && otherWaiter != nil {
				s.removeFromAllLanes(ctx, otherWaiter)
			}
			if err := s.store.Delete(ctx, waiterKey(other)); err != nil {
				logger.Log.Warn("failed to delete partner waiter", zap.String("userID", other), zap.Error(err))
			}
		}
	}
	if matchID != "" {
		if err := s.store.Delete(ctx, matchKey(matchID)); err != nil {
			logger.Log.Warn("failed to delete match", zap.String("matchID", matchID), zap.Error(err))
		}
	}
	if err := s.store.Delete(ctx, waiterKey(userID)); err != nil {
		logger.Log.Warn("failed to delete waiter", zap.String("userID", userID), zap.Error(err))
	}
}

// GetStatus reports the caller's queue state. A MATCHED waiter without a
// backing match record reads as NOT_FOUND: the waiter's status alone is
// not authoritative.
func (s *Service) GetStatus(ctx context.Context, userID string) (*StatusResult, error) {
	raw, err := s.store.GetMap(ctx, waiterKey(userID))
	if err != nil {
		return nil, err
	}
	waiter := model.WaiterFromMap(raw)
	if waiter == nil || waiter.Status == "" {
		return &StatusResult{Status: StatusNotFound}, nil
	}

	if waiter.Status != model.StatusMatched {
		return &StatusResult{
			Status:    waiter.Status,
			UserID:    userID,
			EnqueueAt: waiter.EnqueueAt,
			ExpiresAt: waiter.EnqueueAt + s.cfg.MatchTimeout.Milliseconds(),
		}, nil
	}

	rawMatch, err := s.store.GetMap(ctx, matchKey(waiter.MatchID))
	if err != nil {
		return nil, err
	}
	if len(rawMatch) == 0 {
		return &StatusResult{Status: StatusNotFound}, nil
	}

	// absorb the brief window between finalize and session provisioning
	if rawMatch["sessionId"] == "" {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.SessionRetryDelay):
		}
		refetched, err := s.store.GetMap(ctx, matchKey(waiter.MatchID))
		if err == nil && refetched["sessionId"] != "" {
			rawMatch["sessionId"] = refetched["sessionId"]
		}
	}

	m := model.MatchFromMap(rawMatch)
	isUserA := userID == m.UserA

	payload := &MatchPayload{
		MatchID:    m.MatchID,
		Topic:      m.Topic,
		Difficulty: m.Difficulty,
		CreatedAt:  m.CreatedAt,
		SessionID:  m.SessionID,
		Question:   m.Question,
	}
	if isUserA {
		payload.UserID = m.UserA
		payload.Username = displayName(m.UserAName, m.UserA)
		payload.PartnerID = m.UserB
		payload.PartnerUsername = displayName(m.UserBName, m.UserB)
	} else {
		payload.UserID = m.UserB
		payload.Username = displayName(m.UserBName, m.UserB)
		payload.PartnerID = m.UserA
		payload.PartnerUsername = displayName(m.UserAName, m.UserA)
	}

	return &StatusResult{Status: model.StatusMatched, Match: payload}, nil
}

func displayName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

// Leave removes the user's entire queue and match footprint. It repairs
// the partner too: a leave must never strand the other side MATCHED
// against a closed match. Always reports removed, a missing user is
// already in the desired end state.
func (s *Service) Leave(ctx context.Context, userID string) (*LeaveResult, error) {
	waiter, err := s.loadWaiter(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		m       *model.Match
		matchID string
	)
	if waiter != nil && waiter.MatchID != "" {
		matchID = waiter.MatchID
		if m, err = s.loadMatch(ctx, matchID); err != nil {
			logger.Log.Warn("failed to load match on leave", zap.String("matchID", matchID), zap.Error(err))
			m, err = nil, nil
		}
	} else {
		// the waiter may have been cleared while the match survived
		m, matchID = s.findMatchInvolving(ctx, userID)
	}

	if m != nil {
		if err := s.store.SetMap(ctx, matchKey(matchID), map[string]string{"closed": "true"}); err != nil {
			logger.Log.Warn("failed to close match on leave", zap.String("matchID", matchID), zap.Error(err))
		}
		if other := m.Partner(userID); other != "" && other != userID {
			otherWaiter, err := s.loadWaiter(ctx, other)
			if err == nil && otherWaiter != nil {
				s.removeFromAllLanes(ctx, otherWaiter)
			}
			if err := s.store.Delete(ctx, waiterKey(other)); err != nil {
				logger.Log.Warn("failed to delete partner waiter on leave", zap.String("userID", other), zap.Error(err))
			}
		}
		if err := s.store.Delete(ctx, matchKey(matchID)); err != nil {
			logger.Log.Warn("failed to delete match on leave", zap.String("matchID", matchID), zap.Error(err))
		}
	}

	if waiter != nil {
		s.removeFromAllLanes(ctx, waiter)
	}
	if err := s.store.Delete(ctx, waiterKey(userID)); err != nil {
		return nil, err
	}

	logger.Log.Info("user left queue", zap.String("userID", userID))
	return &LeaveResult{Removed: true}, nil
}

// findMatchInvolving scans match records for one naming the user. Slow
// path, only hit when waiter and match state have drifted apart.
func (s *Service) findMatchInvolving(ctx context.Context, userID string) (*model.Match, string) {
	keys, err := s.store.Keys(ctx, matchKeyPrefix)
	if err != nil {
		logger.Log.Warn("match scan failed", zap.Error(err))
		return nil, ""
	}
	for _, key := range keys {
		raw, err := s.store.GetMap(ctx, key)
		if err != nil {
			continue
		}
		if m := model.MatchFromMap(raw); m != nil && m.Involves(userID) {
			return m, m.MatchID
		}
	}
	return nil, ""
}

// HandleDisconnect resolves the remaining user's fate after their partner
// dropped from a live session. The departed partner is marked
// DISCONNECTED but kept: they may still reconnect to the same match
// out-of-band.
func (s *Service) HandleDisconnect(ctx context.Context, req DisconnectRequest) (*DisconnectResult, error) {
	m, err := s.loadMatch(ctx, req.MatchID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Closed {
		return nil, appErr.ErrMatchNotActive
	}

	if other := m.Partner(req.RemainingUserID); other != "" {
		if err := s.store.SetMap(ctx, waiterKey(other), map[string]string{"status": model.StatusDisconnected}); err != nil {
			return nil, err
		}
	}

	switch req.Action {
	case ActionSolo:
		if err := s.store.SetMap(ctx, waiterKey(req.RemainingUserID), map[string]string{"status": model.StatusSolo}); err != nil {
			return nil, err
		}
		question := m.Question
		return &DisconnectResult{OK: true, Mode: ModeSolo, Question: &question}, nil

	case ActionRequeue:
		now := s.nowMs()
		waiter, err := s.loadWaiter(ctx, req.RemainingUserID)
		if err != nil {
			return nil, err
		}
		if waiter == nil {
			waiter = &model.Waiter{
				UserID:             req.RemainingUserID,
				SelectedTopics:     []string{m.Topic},
				SelectedDifficulty: m.Difficulty,
			}
		}
		waiter.Status = model.StatusWaiting
		waiter.EnqueueAt = now
		waiter.MatchID = ""
		if err := s.store.SetMap(ctx, waiterKey(req.RemainingUserID), waiter.ToMap()); err != nil {
			return nil, err
		}
		if err := s.store.Expire(ctx, waiterKey(req.RemainingUserID), s.cfg.MatchTimeout); err != nil {
			return nil, err
		}
		if err := s.store.ZAdd(ctx, laneKey(m.Topic, m.Difficulty), float64(now), req.RemainingUserID); err != nil {
			return nil, err
		}
		logger.Log.Info("user requeued after partner disconnect",
			zap.String("userID", req.RemainingUserID),
			zap.String("matchID", req.MatchID),
		)
		return &DisconnectResult{OK: true, Mode: ModeRequeued, ExpiresAt: now + s.cfg.MatchTimeout.Milliseconds()}, nil
	}

	return nil, appErr.ErrInvalidAction
}

func (s *Service) loadWaiter(ctx context.Context, userID string) (*model.Waiter, error) {
	raw, err := s.store.GetMap(ctx, waiterKey(userID))
	if err != nil {
		return nil, err
	}
	return model.WaiterFromMap(raw), nil
}

func (s *Service) loadMatch(ctx context.Context, matchID string) (*model.Match, error) {
	if matchID == "" {
		return nil, nil
	}
	raw, err := s.store.GetMap(ctx, matchKey(matchID))
	if err != nil {
		return nil, err
	}
	return model.MatchFromMap(raw), nil
}

// removeFromAllLanes clears the waiter from every lane it may occupy:
// own topics across all difficulties. ZRem of an absent member is a cheap
// no-op, so over-removal is fine.
func (s *Service) removeFromAllLanes(ctx context.Context, w *model.Waiter) {
	for _, topic := range w.SelectedTopics {
		for _, difficulty := range model.Difficulties {
			if err := s.store.ZRem(ctx, laneKey(topic, difficulty), w.UserID); err != nil {
				logger.Log.Warn("lane removal failed",
					zap.String("userID", w.UserID),
					zap.String("topic", topic),
					zap.String("difficulty", difficulty),
					zap.Error(err),
				)
			}
		}
	}
}

const (
	waiterKeyPrefix = "waiter:"
	matchKeyPrefix  = "match:"
)

func waiterKey(userID string) string {
	return waiterKeyPrefix + userID
}

func matchKey(matchID string) string {
	return matchKeyPrefix + matchID
}

func laneKey(topic, difficulty string) string {
	return fmt.Sprintf("queue:%s:%s", topic, difficulty)
}

func claimKey(userID string) string {
	return "claim:" + userID
}
