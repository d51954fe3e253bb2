package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/tanpawarit/vendor-desk-assistant/agent/cache"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	nodex "github.com/tanpawarit/vendor-desk-assistant/agent/nodes/orchestrator"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrNilCache       = nodex.ErrNilCache
)

type Config struct {
	ReplyDelay time.Duration `split_words:"true" default:"400ms"`
	TieBreak   string        `split_words:"true" default:"first"`
}

type Orchestrator struct {
	store    contractx.EntityStore
	tieBreak cache.TieBreak

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(store contractx.EntityStore, cfg Config) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("entity store is required")
	}

	tieBreak, err := cache.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		store:    store,
		tieBreak: tieBreak,
		now:      time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage classifies text, runs the implied action against the store and
// reconciles c. c must belong to the calling session.
func (o *Orchestrator) HandleMessage(ctx context.Context, c *cache.Cache, text string) (nodex.GraphOutput, error) {
	return o.graphRunner.Invoke(ctx, nodex.GraphInput{
		Text:  text,
		Cache: c,
	})
}

// Store exposes the entity store the orchestrator dispatches to.
func (o *Orchestrator) Store() contractx.EntityStore {
	return o.store
}
