package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrNilTranscript      = errors.New("transcript is nil")
	ErrInvalidSession     = errors.New("session id is empty")
)

const (
	defaultStoreKeyPrefix = "vendordesk:transcript:"
	defaultStoreTTL       = 24 * time.Hour
	maxResponseSizeBytes  = 2 << 20
)

// Transcript is the persisted form of a session's messages.
type Transcript struct {
	SessionID string                  `json:"session_id"`
	Messages  []contractx.ChatMessage `json:"messages"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// TranscriptStore persists transcripts by session id.
type TranscriptStore interface {
	Load(ctx context.Context, sessionID string) (*Transcript, error)
	Save(ctx context.Context, tr *Transcript) error
	Delete(ctx context.Context, sessionID string) error
}

/* ------------------------------ In memory ----------------------------- */

type MemoryTranscriptStore struct {
	mu    sync.RWMutex
	items map[string]Transcript
}

func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{items: make(map[string]Transcript)}
}

func (m *MemoryTranscriptStore) Load(ctx context.Context, sessionID string) (*Transcript, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tr, ok := m.items[sessionID]
	if !ok {
		return nil, ErrTranscriptNotFound
	}
	tr.Messages = append([]contractx.ChatMessage(nil), tr.Messages...)
	return &tr, nil
}

func (m *MemoryTranscriptStore) Save(ctx context.Context, tr *Transcript) error {
	if tr == nil {
		return ErrNilTranscript
	}
	if strings.TrimSpace(tr.SessionID) == "" {
		return ErrInvalidSession
	}
	cp := *tr
	cp.Messages = append([]contractx.ChatMessage(nil), tr.Messages...)
	m.mu.Lock()
	m.items[tr.SessionID] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryTranscriptStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.items, sessionID)
	m.mu.Unlock()
	return nil
}

/* ---------------------------- Upstash Redis ---------------------------- */

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore persists transcripts in Upstash Redis via REST.
type UpstashRedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Enabled reports whether a REST endpoint is configured.
func (c UpstashRedisConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashRedisStore{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	return store, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*Transcript, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrTranscriptNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode transcript payload: %w", err)
	}

	var tr Transcript
	if err := json.Unmarshal([]byte(encoded), &tr); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	return &tr, nil
}

func (s *UpstashRedisStore) Save(ctx context.Context, tr *Transcript) error {
	if tr == nil {
		return ErrNilTranscript
	}
	if strings.TrimSpace(tr.SessionID) == "" {
		return ErrInvalidSession
	}
	if tr.UpdatedAt.IsZero() {
		tr.UpdatedAt = time.Now().UTC()
	} else {
		tr.UpdatedAt = tr.UpdatedAt.UTC()
	}

	key, err := s.redisKey(tr.SessionID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}

	if _, err := s.exec(ctx, cmd); err != nil {
		return err
	}
	return nil
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

func (s *UpstashRedisStore) redisKey(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	prefix := strings.TrimSpace(s.keyPrefix)
	if prefix == "" {
		prefix = defaultStoreKeyPrefix
	}
	return prefix + sessionID, nil
}

func (s *UpstashRedisStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}

// NewTranscriptStore picks Upstash when configured, memory otherwise.
func NewTranscriptStore(cfg UpstashRedisConfig) (TranscriptStore, error) {
	if !cfg.Enabled() {
		return NewMemoryTranscriptStore(), nil
	}
	return NewUpstashRedisStore(cfg)
}
