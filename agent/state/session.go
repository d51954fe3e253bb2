package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/vendor-desk-assistant/agent/cache"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	nodex "github.com/tanpawarit/vendor-desk-assistant/agent/nodes/orchestrator"
)

const WelcomeMessage = "Hi! Ask me about vendors or purchase orders."

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrComposing      = errors.New("a reply is still being composed")
	ErrNilHandler     = errors.New("message handler is nil")
)

// MessageHandler turns one user message into a reply, reconciling the cache.
type MessageHandler interface {
	HandleMessage(ctx context.Context, c *cache.Cache, text string) (nodex.GraphOutput, error)
}

// Session is one conversation: an append-only transcript, the composing flag,
// the pending input buffer, and the local cache the conversation acts on.
//
// A session processes one submission at a time. Submit while composing is
// rejected with ErrComposing.
type Session struct {
	id         string
	handler    MessageHandler
	cache      *cache.Cache
	store      TranscriptStore
	replyDelay time.Duration

	mu         sync.Mutex
	transcript []contractx.ChatMessage
	composing  bool
	pending    string
}

type SessionOption func(*Session)

func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			s.id = trimmed
		}
	}
}

// WithReplyDelay sets the minimum time before a reply that needed no store call
// is appended.
func WithReplyDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		if d >= 0 {
			s.replyDelay = d
		}
	}
}

func WithTranscriptStore(store TranscriptStore) SessionOption {
	return func(s *Session) {
		s.store = store
	}
}

// WithHistory seeds the transcript, replacing the welcome message.
func WithHistory(messages []contractx.ChatMessage) SessionOption {
	return func(s *Session) {
		s.transcript = append([]contractx.ChatMessage(nil), messages...)
	}
}

func NewSession(handler MessageHandler, c *cache.Cache, opts ...SessionOption) (*Session, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if c == nil {
		c = cache.New()
	}

	s := &Session{
		id:         uuid.NewString(),
		handler:    handler,
		cache:      c,
		replyDelay: 400 * time.Millisecond,
		transcript: []contractx.ChatMessage{contractx.BotMessage(WelcomeMessage)},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ResumeSession loads a stored transcript for id, or starts a fresh one when
// none exists.
func ResumeSession(
	ctx context.Context,
	store TranscriptStore,
	id string,
	handler MessageHandler,
	c *cache.Cache,
	opts ...SessionOption,
) (*Session, error) {
	opts = append([]SessionOption{WithSessionID(id), WithTranscriptStore(store)}, opts...)

	tr, err := store.Load(ctx, id)
	switch {
	case err == nil:
		opts = append(opts, WithHistory(tr.Messages))
	case errors.Is(err, ErrTranscriptNotFound):
	default:
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return NewSession(handler, c, opts...)
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Cache() *cache.Cache {
	return s.cache
}

// Transcript returns a copy in display order.
func (s *Session) Transcript() []contractx.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contractx.ChatMessage(nil), s.transcript...)
}

func (s *Session) Composing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composing
}

func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) SetPending(text string) {
	s.mu.Lock()
	s.pending = text
	s.mu.Unlock()
}

// SubmitPending clears the pending buffer and submits its content. The buffer
// is cleared even when the submission is rejected.
func (s *Session) SubmitPending(ctx context.Context) (*Turn, error) {
	s.mu.Lock()
	text := s.pending
	s.pending = ""
	s.mu.Unlock()
	return s.Submit(ctx, text)
}

// Submit appends the user message and starts composing the reply. Empty input
// changes nothing. The returned Turn resolves exactly once, after the reply is
// appended and composing is cleared.
func (s *Session) Submit(ctx context.Context, text string) (*Turn, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrInvalidMessage
	}

	s.mu.Lock()
	if s.composing {
		s.mu.Unlock()
		return nil, ErrComposing
	}
	s.composing = true
	s.transcript = append(s.transcript, contractx.UserMessage(trimmed))
	s.mu.Unlock()

	turn := newTurn()
	go s.compose(ctx, trimmed, turn)
	return turn, nil
}

// Send submits text and waits for the reply.
func (s *Session) Send(ctx context.Context, text string) (contractx.ChatMessage, error) {
	turn, err := s.Submit(ctx, text)
	if err != nil {
		return contractx.ChatMessage{}, err
	}
	return turn.Wait()
}

func (s *Session) compose(ctx context.Context, text string, turn *Turn) {
	start := time.Now()
	var reply contractx.ChatMessage

	defer func() {
		if r := recover(); r != nil {
			turn.err = fmt.Errorf("compose reply: %v", r)
			reply = contractx.BotMessage(failureReply(turn.err))
		}

		s.mu.Lock()
		s.transcript = append(s.transcript, reply)
		s.composing = false
		s.mu.Unlock()

		s.persist(ctx)
		turn.reply = reply
		close(turn.done)
	}()

	out, err := s.handler.HandleMessage(ctx, s.cache, text)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.id).Msg("handle message failed")
		turn.err = err
		reply = contractx.BotMessage(failureReply(err))
		return
	}

	if !out.RemoteCall {
		waitUntil(ctx, start.Add(s.replyDelay))
	}
	reply = out.Reply
	log.Debug().
		Str("session_id", s.id).
		Str("intent", string(out.Intent.Kind)).
		Bool("remote_call", out.RemoteCall).
		Dur("elapsed", time.Since(start)).
		Msg("turn completed")
}

func (s *Session) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	tr := &Transcript{
		SessionID: s.id,
		Messages:  s.Transcript(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.Save(context.WithoutCancel(ctx), tr); err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("save transcript failed")
	}
}

func failureReply(err error) string {
	return fmt.Sprintf("Sorry, something went wrong: %v", err)
}

// waitUntil blocks until deadline or ctx is done.
func waitUntil(ctx context.Context, deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Turn is the pending reply of one submission.
type Turn struct {
	done  chan struct{}
	reply contractx.ChatMessage
	err   error
}

func newTurn() *Turn {
	return &Turn{done: make(chan struct{})}
}

// Done is closed once the reply has been appended.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn resolves. The error is non-nil only when the
// message could not be handled; the transcript still received a reply.
func (t *Turn) Wait() (contractx.ChatMessage, error) {
	<-t.done
	return t.reply, t.err
}
