package orchestratornode

import (
	"errors"
	"strings"
	"time"

	"github.com/tanpawarit/vendor-desk-assistant/agent/cache"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrNilCache       = errors.New("local cache is nil")
)

type GraphInput struct {
	Text  string
	Cache *cache.Cache
}

type GraphOutput struct {
	Reply      contractx.ChatMessage
	Intent     contractx.Intent
	RemoteCall bool
}

type GraphState struct {
	Text  string
	Now   time.Time
	Cache *cache.Cache

	Intent contractx.Intent
	Result contractx.DispatchResult
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	if in.Cache == nil {
		return nil, ErrNilCache
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		Text:  text,
		Now:   nowFn().UTC(),
		Cache: in.Cache,
	}, nil
}
