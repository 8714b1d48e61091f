package match

import (
	"context"
	"fmt"
	"time"

	"peermatch-service/internal/client"
	"peermatch-service/internal/model"
	"peermatch-service/pkg/logger"

	"go.uber.org/zap"
)

// tryMatchForUser runs the matching policy for one waiter: a perfect pass
// over the waiter's own lanes, then, once past the fallback threshold, a
// pass over adjacent-difficulty lanes. Returns nil when nothing pairs.
//
// Callable both synchronously from Join and from the fallback scheduler;
// it no-ops when the waiter has matched or left in the meantime.
func (s *Service) tryMatchForUser(ctx context.Context, waiter *model.Waiter) (*JoinResult, error) {
	if waiter == nil || waiter.Status != model.StatusWaiting {
		return nil, nil
	}

	// perfect pass: caller-supplied topic order, oldest waiter first
	for _, topic := range waiter.SelectedTopics {
		result, err := s.scanLane(ctx, waiter, topic, waiter.SelectedDifficulty, false)
		if result != nil || err != nil {
			return result, err
		}
	}

	// fallback pass, only once this waiter has been patient long enough
	if s.nowMs()-waiter.EnqueueAt < s.cfg.FallbackThreshold.Milliseconds() {
		return nil, nil
	}
	for _, topic := range waiter.SelectedTopics {
		for _, difficulty := range fallbackOrder(waiter.SelectedDifficulty) {
			result, err := s.scanLane(ctx, waiter, topic, difficulty, true)
			if result != nil || err != nil {
				return result, err
			}
		}
	}

	return nil, nil
}

// scanLane walks one lane oldest-first looking for an eligible candidate.
// Candidates are re-validated against their own record: a lane entry is
// only a hint, the waiter record is the truth. Entries whose record has
// expired are removed from the lane on the way through.
func (s *Service) scanLane(ctx context.Context, waiter *model.Waiter, topic, difficulty string, fallback bool) (*JoinResult, error) {
	lane := laneKey(topic, difficulty)
	memberIDs, err := s.store.ZRange(ctx, lane)
	if err != nil {
		return nil, err
	}

	for _, id := range memberIDs {
		if id == waiter.UserID {
			continue
		}
		candidate, err := s.loadWaiter(ctx, id)
		if err != nil {
			return nil, err
		}
		if candidate == nil {
			// record expired, heal the lane
			if err := s.store.ZRem(ctx, lane, id); err != nil {
				logger.Log.Warn("stale lane entry removal failed", zap.String("userID", id), zap.Error(err))
			}
			continue
		}
		if candidate.Status != model.StatusWaiting {
			continue
		}
		if fallback && s.nowMs()-candidate.EnqueueAt < s.cfg.FallbackThreshold.Milliseconds() {
			// cross-difficulty pairs need two impatient users, not one
			continue
		}

		claimed, err := s.claimPair(ctx, waiter, candidate)
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		return s.finalizePair(ctx, waiter, candidate, topic, difficulty)
	}
	return nil, nil
}

// claimPair takes short-lived exclusive claims on both users before
// finalizing, closing most of the window where two concurrent matchers
// could pick the same candidate. A failed claim means another finalizer
// owns one of them; back off and keep scanning.
func (s *Service) claimPair(ctx context.Context, a, b *model.Waiter) (bool, error) {
	ok, err := s.store.SetNX(ctx, claimKey(b.UserID), a.UserID, s.cfg.ClaimTTL)
	if err != nil || !ok {
		return false, err
	}
	ok, err = s.store.SetNX(ctx, claimKey(a.UserID), b.UserID, s.cfg.ClaimTTL)
	if err != nil || !ok {
		if delErr := s.store.Delete(ctx, claimKey(b.UserID)); delErr != nil {
			logger.Log.Warn("claim release failed", zap.String("userID", b.UserID), zap.Error(delErr))
		}
		return false, err
	}
	return true, nil
}

// finalizePair commits a match: question, session, match record, lane
// removal, status flips. Collaborator failures degrade (placeholder
// question, empty session id) but never abort the pair.
func (s *Service) finalizePair(ctx context.Context, a, b *model.Waiter, topic, difficulty string) (*JoinResult, error) {
	defer func() {
		if err := s.store.Delete(ctx, claimKey(a.UserID), claimKey(b.UserID)); err != nil {
			logger.Log.Warn("claim cleanup failed", zap.Error(err))
		}
	}()

	matchID := s.newID()
	createdAt := s.nowMs()

	question, err := s.questions.FetchRandom(ctx, topic, difficulty)
	if err != nil {
		logger.Log.Warn("question fetch failed, using placeholder",
			zap.String("topic", topic),
			zap.String("difficulty", difficulty),
			zap.Error(err),
		)
		question = placeholderQuestion(topic, difficulty)
	}

	sessionID, err := s.sessions.Create(ctx, client.SessionRequest{
		UserA:      a.UserID,
		UserAName:  a.Username,
		UserB:      b.UserID,
		UserBName:  b.Username,
		Topic:      topic,
		Difficulty: difficulty,
		Question:   question,
	})
	if err != nil {
		logger.Log.Warn("session create failed, match proceeds without session",
			zap.String("matchID", matchID),
			zap.Error(err),
		)
		sessionID = ""
	}

	m := &model.Match{
		MatchID:            matchID,
		UserA:              a.UserID,
		UserAName:          a.Username,
		UserB:              b.UserID,
		UserBName:          b.Username,
		Topic:              topic,
		Difficulty:         difficulty,
		CreatedAt:          createdAt,
		HandshakeExpiresAt: createdAt + s.cfg.HandshakeTTL.Milliseconds(),
		SessionID:          sessionID,
		Question:           question,
	}
	if err := s.store.SetMap(ctx, matchKey(matchID), m.ToMap()); err != nil {
		return nil, err
	}
	if err := s.store.Expire(ctx, matchKey(matchID), s.cfg.MatchRecordTTL); err != nil {
		return nil, err
	}

	s.removeFromAllLanes(ctx, a)
	s.removeFromAllLanes(ctx, b)

	matched := map[string]string{"status": model.StatusMatched, "matchId": matchID}
	if err := s.store.SetMap(ctx, waiterKey(a.UserID), matched); err != nil {
		return nil, err
	}
	if err := s.store.SetMap(ctx, waiterKey(b.UserID), matched); err != nil {
		return nil, err
	}

	logger.Log.Info("match finalized",
		zap.String("matchID", matchID),
		zap.String("userA", a.UserID),
		zap.String("userB", b.UserID),
		zap.String("topic", topic),
		zap.String("difficulty", difficulty),
		zap.String("sessionID", sessionID),
	)

	return &JoinResult{Status: JoinStatusMatched, Match: newMatchView(m)}, nil
}

func placeholderQuestion(topic, difficulty string) model.Question {
	return model.Question{
		ID:          fmt.Sprintf("placeholder-%s-%s", topic, difficulty),
		Title:       fmt.Sprintf("Practice %s (%s)", topic, difficulty),
		Description: "The question service was unavailable; work through a problem of your choice on this topic.",
		Difficulty:  difficulty,
		Topic:       topic,
	}
}

// fallbackOrder lists adjacent difficulties to try, preferring one step
// harder, then one easier, then two steps either way.
func fallbackOrder(difficulty string) []string {
	idx := -1
	for i, d := range model.Difficulties {
		if d == difficulty {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	var order []string
	for _, offset := range []int{1, -1, 2, -2} {
		i := idx + offset
		if i >= 0 && i < len(model.Difficulties) {
			order = append(order, model.Difficulties[i])
		}
	}
	return order
}

// Start launches the fallback scheduler. It is the only driver of
// cross-difficulty matches for users who joined long ago and are simply
// polling; it stops with ctx.
func (s *Service) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		go s.runFallbackChecker(ctx)
	})
	return nil
}

func (s *Service) runFallbackChecker(ctx context.Context) {
	logger.Log.Info("fallback checker started", zap.Duration("interval", s.cfg.FallbackCheck))

	ticker := time.NewTicker(s.cfg.FallbackCheck)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("fallback checker stopped")
			return
		case <-ticker.C:
			if err := s.checkWaitingUsers(ctx); err != nil {
				logger.Log.Warn("fallback check error", zap.Error(err))
			}
		}
	}
}

// checkWaitingUsers re-runs the matcher for every waiter past the
// fallback threshold.
func (s *Service) checkWaitingUsers(ctx context.Context) error {
	keys, err := s.store.Keys(ctx, waiterKeyPrefix)
	if err != nil {
		return err
	}

	now := s.nowMs()
	for _, key := range keys {
		raw, err := s.store.GetMap(ctx, key)
		if err != nil {
			return err
		}
		waiter := model.WaiterFromMap(raw)
		if waiter == nil || waiter.Status != model.StatusWaiting {
			continue
		}
		if now-waiter.EnqueueAt < s.cfg.FallbackThreshold.Milliseconds() {
			continue
		}
		if _, err := s.tryMatchForUser(ctx, waiter); err != nil {
			logger.Log.Warn("fallback match attempt failed",
				zap.String("userID", waiter.UserID),
				zap.Error(err),
			)
		}
	}
	return nil
}
