package main

import (
	"context"
	"fmt"

	"github.com/tanpawarit/vendor-desk-assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/vendor-desk-assistant/agent/cache"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	"github.com/tanpawarit/vendor-desk-assistant/agent/state"
	configx "github.com/tanpawarit/vendor-desk-assistant/pkg/config"
	"github.com/tanpawarit/vendor-desk-assistant/pkg/storeclient"
)

// newEntityStore returns the remote store client. Tests replace it.
var newEntityStore = func() (contractx.EntityStore, error) {
	cfg, err := configx.New[storeclient.Config]("STORE")
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}
	return storeclient.New(*cfg)
}

func loadAssistantConfig() (orchestrator.Config, error) {
	cfg, err := configx.New[orchestrator.Config]("ASSISTANT")
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("loading assistant config: %w", err)
	}
	return *cfg, nil
}

func newTranscriptStore() (state.TranscriptStore, error) {
	cfg, err := configx.New[state.UpstashRedisConfig]("UPSTASH_REDIS")
	if err != nil {
		return nil, fmt.Errorf("loading transcript store config: %w", err)
	}
	return state.NewTranscriptStore(*cfg)
}

// openSession wires store, orchestrator and a seeded cache into a session.
// A non-empty id resumes a stored transcript.
func openSession(ctx context.Context, store contractx.EntityStore, id string) (*state.Session, error) {
	assistantCfg, err := loadAssistantConfig()
	if err != nil {
		return nil, err
	}
	orch, err := orchestrator.New(store, assistantCfg)
	if err != nil {
		return nil, fmt.Errorf("building orchestrator: %w", err)
	}

	c := cache.New()
	if err := c.Seed(ctx, store); err != nil {
		return nil, fmt.Errorf("loading vendors and purchase orders: %w", err)
	}

	transcripts, err := newTranscriptStore()
	if err != nil {
		return nil, err
	}

	opts := []state.SessionOption{
		state.WithReplyDelay(assistantCfg.ReplyDelay),
		state.WithTranscriptStore(transcripts),
	}
	if id == "" {
		return state.NewSession(orch, c, opts...)
	}
	return state.ResumeSession(ctx, transcripts, id, orch, c, opts...)
}
