// Package live consumes the push channel of the citas API. The server
// emits named events ("nuevo-mensaje") carrying a raw record payload;
// the bridge routes each event to subscribers of its correlation key
// (telefono or conversation id). The channel is an external
// collaborator: no ordering guarantee exists between a pushed event and
// the next full reload, so consumers treat reloads as the source of
// truth and use pushed payloads only for low-latency feedback.
package live

import (
	"context"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ScopeAll subscribes to every event regardless of correlation key.
const ScopeAll = "*"

// Event is one push notification.
type Event struct {
	Name    string
	Payload map[string]any
}

// Scopes returns the correlation keys this event addresses.
func (e Event) Scopes() []string {
	var out []string
	for _, k := range []string{"conversation_id", "telefono"} {
		if v, ok := e.Payload[k].(string); ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Handler receives routed events. Handlers run on the read loop
// goroutine and must not block.
type Handler func(Event)

// Conn abstracts the websocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// frame is the wire shape of one push message.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Bridge routes pushed events to per-scope subscribers. All operations
// are thread-safe via sync.RWMutex.
type Bridge struct {
	mu   sync.RWMutex
	subs map[string]map[string]Handler // scope -> subscription id -> handler
	conn Conn
	log  zerolog.Logger
}

// NewBridge wraps an established connection. Use Dial for the real
// channel; tests inject a fake Conn.
func NewBridge(conn Conn, log zerolog.Logger) *Bridge {
	return &Bridge{
		subs: make(map[string]map[string]Handler),
		conn: conn,
		log:  log,
	}
}

// TokenSource supplies the bearer credential for the channel handshake.
type TokenSource interface {
	Token() (string, error)
}

// Dial connects to the push channel, authenticating with the same
// bearer token as the REST surface.
func Dial(ctx context.Context, wsURL string, tokens TokenSource, log zerolog.Logger) (*Bridge, error) {
	header := http.Header{}
	if tokens != nil {
		token, err := tokens.Token()
		if err != nil {
			return nil, err
		}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}
	return NewBridge(conn, log), nil
}

// Subscribe registers a handler for one correlation scope (or ScopeAll)
// and returns the subscription id.
func (b *Bridge) Subscribe(scope string, h Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	if b.subs[scope] == nil {
		b.subs[scope] = make(map[string]Handler)
	}
	b.subs[scope][id] = h
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bridge) Unsubscribe(scope, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.subs[scope]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.subs, scope)
		}
	}
}

// Run reads the channel until the connection closes or ctx is
// cancelled, routing each decoded event. Malformed frames are skipped.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil || f.Event == "" {
			continue
		}
		payload := map[string]any{}
		if len(f.Data) > 0 {
			_ = json.Unmarshal(f.Data, &payload)
		}

		ev := Event{Name: f.Event, Payload: payload}
		b.log.Debug().Str("event", ev.Name).Msg("live event")
		b.route(ev)
	}
}

func (b *Bridge) route(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]struct{})
	deliver := func(scope string) {
		for id, h := range b.subs[scope] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			h(ev)
		}
	}

	for _, scope := range ev.Scopes() {
		deliver(scope)
	}
	deliver(ScopeAll)
}

// Close closes the underlying connection, unblocking Run.
func (b *Bridge) Close() error {
	return b.conn.Close()
}
