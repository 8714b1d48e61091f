package service

import (
	"context"

	"peermatch-service/internal/client"
	"peermatch-service/internal/config"
	"peermatch-service/internal/service/match"
	"peermatch-service/internal/store"
)

type Container struct {
	Match *match.Service
}

func NewContainer(st store.Store) *Container {
	cfg := config.GlobalConfig
	questions := client.NewQuestionClient(cfg.Services.QuestionBaseURL, cfg.Services.RequestTimeout)
	sessions := client.NewCollabClient(cfg.Services.CollabBaseURL, cfg.Services.RequestTimeout)

	return &Container{
		Match: match.NewService(st, questions, sessions, matchConfig(cfg.Match)),
	}
}

func (c *Container) Start(ctx context.Context) error {
	return c.Match.Start(ctx)
}

// matchConfig maps file config onto the service config, keeping defaults
// for anything left unset.
func matchConfig(mc config.MatchConfig) match.Config {
	cfg := match.DefaultConfig()
	if mc.MatchTimeout > 0 {
		cfg.MatchTimeout = mc.MatchTimeout
	}
	if mc.HandshakeTTL > 0 {
		cfg.HandshakeTTL = mc.HandshakeTTL
	}
	if mc.FallbackThreshold > 0 {
		cfg.FallbackThreshold = mc.FallbackThreshold
	}
	if mc.FallbackCheck > 0 {
		cfg.FallbackCheck = mc.FallbackCheck
	}
	if mc.MatchRecordTTL > 0 {
		cfg.MatchRecordTTL = mc.MatchRecordTTL
	}
	if mc.StaleGrace > 0 {
		cfg.StaleGrace = mc.StaleGrace
	}
	if mc.StaleSessionGrace > 0 {
		cfg.StaleSessionGrace = mc.StaleSessionGrace
	}
	if mc.StaleCeiling > 0 {
		cfg.StaleCeiling = mc.StaleCeiling
	}
	if mc.SessionRetryDelay > 0 {
		cfg.SessionRetryDelay = mc.SessionRetryDelay
	}
	if mc.ClaimTTL > 0 {
		cfg.ClaimTTL = mc.ClaimTTL
	}
	return cfg
}
