package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/tanpawarit/vendor-desk-assistant/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
	"github.com/tanpawarit/vendor-desk-assistant/agent/state"
)

func dialChat(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(url, "http")+"/chat/ws", nil)
	if err != nil {
		t.Fatalf("websocket.Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "") })
	return ws
}

func readEvent(t *testing.T, ctx context.Context, ws *websocket.Conn) ChatEvent {
	t.Helper()
	_, data, err := ws.Read(ctx)
	if err != nil {
		t.Fatalf("ws.Read() error = %v", err)
	}
	var ev ChatEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode event %q: %v", data, err)
	}
	return ev
}

func sendText(t *testing.T, ctx context.Context, ws *websocket.Conn, text string) {
	t.Helper()
	data, _ := json.Marshal(map[string]string{"text": text})
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("ws.Write() error = %v", err)
	}
}

func TestChatWebSocketCreatesOrder(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := newTestRepository(t)
	orch, err := orchestrator.New(repo, orchestrator.Config{TieBreak: "first"})
	if err != nil {
		t.Fatalf("orchestrator.New() error = %v", err)
	}
	srv, err := New(Config{}, repo, WithChat(NewChatHandler(repo, orch, WithReplyDelay(0))))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ws := dialChat(t, ctx, ts.URL)

	welcome := readEvent(t, ctx, ws)
	if welcome.Type != EventMessage || welcome.Role != contractx.RoleBot || welcome.Text != state.WelcomeMessage {
		t.Fatalf("welcome = %+v", welcome)
	}

	sendText(t, ctx, ws, "create po 77 amount 10 vendor Acme")
	if ev := readEvent(t, ctx, ws); ev.Type != EventComposing {
		t.Fatalf("event = %+v, want composing", ev)
	}
	reply := readEvent(t, ctx, ws)
	if reply.Type != EventMessage || !strings.HasPrefix(reply.Text, "PO created successfully: #77") {
		t.Fatalf("reply = %+v", reply)
	}

	orders, err := repo.ListOrders(ctx)
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(orders) != 1 || orders[0].PONumber != 77 || orders[0].Vendor != "Acme" {
		t.Fatalf("orders = %+v", orders)
	}

	sendText(t, ctx, ws, "   ")
	if ev := readEvent(t, ctx, ws); ev.Type != EventError || ev.Text != state.ErrInvalidMessage.Error() {
		t.Fatalf("event = %+v, want empty-message error", ev)
	}
}

func TestChatWebSocketResumesTranscript(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := newTestRepository(t)
	transcripts := state.NewMemoryTranscriptStore()
	err := transcripts.Save(ctx, &state.Transcript{
		SessionID: "abc",
		Messages: []contractx.ChatMessage{
			contractx.BotMessage(state.WelcomeMessage),
			contractx.UserMessage("hello"),
			contractx.BotMessage("Hello! How can I help you today?"),
		},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	orch, _ := orchestrator.New(repo, orchestrator.Config{TieBreak: "first"})
	chat := NewChatHandler(repo, orch, WithReplyDelay(0), WithTranscripts(transcripts))
	srv, _ := New(Config{}, repo, WithChat(chat))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ws, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/chat/ws?session=abc", nil)
	if err != nil {
		t.Fatalf("websocket.Dial() error = %v", err)
	}
	defer ws.Close(websocket.StatusNormalClosure, "")

	var texts []string
	for i := 0; i < 3; i++ {
		texts = append(texts, readEvent(t, ctx, ws).Text)
	}
	if texts[1] != "hello" {
		t.Fatalf("replayed transcript = %v", texts)
	}
}
