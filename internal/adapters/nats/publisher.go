package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/detour/internal/core/domain"
)

// Subjects used by the planner.
const (
	SubjectQueryCreatedPrefix = "detour.query.created."
	SubjectStopoverPrefix     = "detour.stopover."
)

// QueryCreatedSubject is the subject announcing a new query.
func QueryCreatedSubject(queryID string) string { return SubjectQueryCreatedPrefix + queryID }

// StopoverSubject is the subject carrying stopovers selected for a query.
func StopoverSubject(queryID string) string { return SubjectStopoverPrefix + queryID }

// Streams returns the JetStream streams the planner relies on.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "DETOUR_QUERIES",
			Subjects:  []string{SubjectQueryCreatedPrefix + ">"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "DETOUR_STOPOVERS",
			Subjects:  []string{SubjectStopoverPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := ensureStreams(js); err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	for _, cfg := range Streams() {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// QueryCreatedEvent is the payload of a query-created message.
type QueryCreatedEvent struct {
	QueryID string `json:"query_id"`
	UserID  string `json:"user_id"`
}

// PublishQueryCreated announces a new query to the planner.
func (p *Publisher) PublishQueryCreated(ctx context.Context, q *domain.Query) error {
	data, err := json.Marshal(QueryCreatedEvent{QueryID: q.ID, UserID: q.UserID})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(QueryCreatedSubject(q.ID), data, nats.Context(ctx), nats.MsgId(q.ID))
	return err
}

// PublishStopover broadcasts a selected stopover.
func (p *Publisher) PublishStopover(ctx context.Context, st *domain.Stopover) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(StopoverSubject(st.QueryID), data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for health checks and relays.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("detour"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
