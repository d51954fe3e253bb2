package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/vendor-desk-assistant/agent/cache"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	"github.com/tanpawarit/vendor-desk-assistant/agent/state"
)

const (
	chatWriteTimeout = 10 * time.Second
	chatReadLimit    = 16 << 10
)

// Outbound chat event types.
const (
	EventComposing = "composing"
	EventMessage   = "message"
	EventError     = "error"
)

type chatInbound struct {
	Text string `json:"text"`
}

type ChatEvent struct {
	Type string         `json:"type"`
	Role contractx.Role `json:"role,omitempty"`
	Text string         `json:"text,omitempty"`
}

// ChatHandler serves one conversation session per websocket connection. Every
// connection gets its own cache seeded from the store.
type ChatHandler struct {
	store          contractx.EntityStore
	handler        state.MessageHandler
	transcripts    state.TranscriptStore
	replyDelay     time.Duration
	originPatterns []string
}

type ChatOption func(*ChatHandler)

func WithTranscripts(store state.TranscriptStore) ChatOption {
	return func(h *ChatHandler) {
		h.transcripts = store
	}
}

func WithReplyDelay(d time.Duration) ChatOption {
	return func(h *ChatHandler) {
		h.replyDelay = d
	}
}

func WithOriginPatterns(patterns []string) ChatOption {
	return func(h *ChatHandler) {
		if len(patterns) > 0 {
			h.originPatterns = patterns
		}
	}
}

func NewChatHandler(store contractx.EntityStore, handler state.MessageHandler, opts ...ChatOption) *ChatHandler {
	h := &ChatHandler{
		store:          store,
		handler:        handler,
		transcripts:    state.NewMemoryTranscriptStore(),
		replyDelay:     400 * time.Millisecond,
		originPatterns: []string{"*"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Error().Err(err).Msg("accept websocket failed")
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			log.Debug().Err(closeErr).Msg("close websocket failed")
		}
	}()
	ws.SetReadLimit(chatReadLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := cache.New()
	if err := c.Seed(ctx, h.store); err != nil {
		log.Warn().Err(err).Msg("seed chat cache failed")
		h.send(ctx, ws, ChatEvent{Type: EventError, Text: "Could not load vendors and purchase orders: " + err.Error()})
	}

	session, err := h.openSession(ctx, r.URL.Query().Get("session"), c)
	if err != nil {
		log.Warn().Err(err).Msg("open chat session failed")
		h.send(ctx, ws, ChatEvent{Type: EventError, Text: err.Error()})
		return
	}

	log.Info().Str("session_id", session.ID()).Msg("chat session opened")
	defer log.Info().Str("session_id", session.ID()).Msg("chat session closed")

	for _, msg := range session.Transcript() {
		h.send(ctx, ws, ChatEvent{Type: EventMessage, Role: msg.Role, Text: msg.Text})
	}

	h.readLoop(ctx, ws, session)
}

// openSession resumes id when given, falling back to a fresh session when the
// transcript cannot be loaded.
func (h *ChatHandler) openSession(ctx context.Context, id string, c *cache.Cache) (*state.Session, error) {
	opts := []state.SessionOption{
		state.WithReplyDelay(h.replyDelay),
		state.WithTranscriptStore(h.transcripts),
	}
	if strings.TrimSpace(id) == "" {
		return state.NewSession(h.handler, c, opts...)
	}
	session, err := state.ResumeSession(ctx, h.transcripts, id, h.handler, c, opts...)
	if err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("resume chat session failed")
		return state.NewSession(h.handler, c, opts...)
	}
	return session, nil
}

func (h *ChatHandler) readLoop(ctx context.Context, ws *websocket.Conn, session *state.Session) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				log.Debug().Str("session_id", session.ID()).Msg("websocket closed by client")
			} else {
				log.Warn().Err(err).Str("session_id", session.ID()).Msg("websocket read failed")
			}
			return
		}

		var in chatInbound
		if err := json.Unmarshal(data, &in); err != nil {
			h.send(ctx, ws, ChatEvent{Type: EventError, Text: "invalid message: " + err.Error()})
			continue
		}

		turn, err := session.Submit(ctx, in.Text)
		if err != nil {
			h.send(ctx, ws, ChatEvent{Type: EventError, Text: err.Error()})
			continue
		}
		h.send(ctx, ws, ChatEvent{Type: EventComposing})

		go func() {
			reply, _ := turn.Wait()
			h.send(ctx, ws, ChatEvent{Type: EventMessage, Role: reply.Role, Text: reply.Text})
		}()
	}
}

func (h *ChatHandler) send(ctx context.Context, ws *websocket.Conn, ev ChatEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("marshal chat event failed")
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, chatWriteTimeout)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, data); err != nil && ctx.Err() == nil {
		log.Debug().Err(err).Msg("websocket write failed")
	}
}
