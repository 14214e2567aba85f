package http

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/detour/internal/adapters/nats"
	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/pkg/logging"
	"github.com/samirrijal/detour/internal/pkg/metrics"
)

const (
	wsQueryLocal = "ws_query"
	wsPingEvery  = 30 * time.Second
)

// wsEvent is one frame sent to the client.
type wsEvent struct {
	Type     string           `json:"type"` // "stopover" | "error"
	Stopover *domain.Stopover `json:"stopover,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// WebSocketAuth authorizes a stopover stream before the upgrade. Browsers
// cannot set headers on a WebSocket handshake, so ?token= is accepted too.
func WebSocketAuth(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Query("token")
		}
		u, err := deps.Users.Authenticate(c.UserContext(), token)
		if err != nil {
			return mapError(c, err)
		}
		q, err := deps.Queries.GetOwned(c.UserContext(), u.ID, c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		c.Locals(wsQueryLocal, q)
		return c.Next()
	}
}

// StopoverStreamHandler replays the stopovers already stored for the query
// and then relays new ones from NATS as the planner finds them.
func StopoverStreamHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()
		q, _ := c.Locals(wsQueryLocal).(*domain.Query)
		if q == nil {
			return
		}
		log := logging.FromContext(context.Background()).With("query_id", q.ID, "remote", c.RemoteAddr().String())

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		write := func(messageType int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			_ = c.SetWriteDeadline(time.Now().Add(10 * time.Second))
			return c.WriteMessage(messageType, data)
		}
		writeEvent := func(ev wsEvent) error {
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			return write(websocket.TextMessage, data)
		}

		// Subscribe before the replay so nothing falls between the two.
		seen := make(map[string]bool)
		var seenMu sync.Mutex
		relay := func(st domain.Stopover) {
			seenMu.Lock()
			dup := st.ID != "" && seen[st.ID]
			seen[st.ID] = true
			seenMu.Unlock()
			if !dup {
				_ = writeEvent(wsEvent{Type: "stopover", Stopover: &st})
			}
		}

		var sub *nats.Subscription
		if deps.NATS != nil {
			var err error
			sub, err = deps.NATS.Subscribe(natsadapter.StopoverSubject(q.ID), func(msg *nats.Msg) {
				var st domain.Stopover
				if err := json.Unmarshal(msg.Data, &st); err != nil {
					log.Warn("ws: bad stopover payload", "error", err)
					return
				}
				relay(st)
			})
			if err != nil {
				log.Error("ws: subscribe failed", "error", err)
				_ = writeEvent(wsEvent{Type: "error", Error: "live updates unavailable"})
			}
		}
		if sub != nil {
			defer func() { _ = sub.Unsubscribe() }()
		}

		stored, err := deps.Queries.Stopovers(context.Background(), q.ID)
		if err != nil {
			log.Error("ws: replay failed", "error", err)
		}
		for _, st := range stored {
			relay(st)
		}

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(wsPingEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := write(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		log.Info("ws client connected")
		// The stream is one-way; reads only detect the close.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		log.Info("ws client disconnected")
	}
}
