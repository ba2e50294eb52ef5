// Package queue carries tareas over a NATS subject. Workers share a queue
// group so each tarea runs once.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"

	"pjecz/carina/internal/core/task"
	ctxutil "pjecz/carina/internal/infrastructure/context"
)

const (
	headerCorrelationID = "X-Correlation-ID"
	drainPoll           = 50 * time.Millisecond
)

// Conn is the part of *nats.Conn used here.
type Conn interface {
	PublishMsg(m *nats.Msg) error
	QueueSubscribe(subject, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// dial and newBackOff are replaced in tests.
var (
	dial       = nats.Connect
	newBackOff = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
)

// Connect dials the server, retrying the first connection with exponential
// backoff up to retries times, and logs connection changes.
func Connect(ctx context.Context, url, name string, retries int, log *slog.Logger) (*nats.Conn, error) {
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(retries)), ctx)

	var nc *nats.Conn
	attempt := 0
	connect := func() error {
		attempt++
		var err error
		nc, err = dial(url, options(name, log)...)
		if err != nil {
			log.Warn("nats not ready", "attempt", attempt, "url", url, "error", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func options(name string, log *slog.Logger) []nats.Option {
	return []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	}
}

type Publisher struct {
	conn    Conn
	subject string
}

func NewPublisher(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

// Enqueue publishes t. Core NATS publish does not take a context, so it is
// only checked before sending.
func (p *Publisher) Enqueue(ctx context.Context, t task.Tarea) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tarea: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = data
	if id := ctxutil.GetCorrelationID(ctx); id != "" {
		msg.Header.Set(headerCorrelationID, id)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// Pool receives the decoded tareas.
type Pool interface {
	Submit(ctx context.Context, t task.Tarea) error
}

type Subscriber struct {
	conn    Conn
	subject string
	group   string
	pool    Pool
	log     *slog.Logger
	ctx     context.Context
	sub     *nats.Subscription
}

func NewSubscriber(conn Conn, subject, group string, pool Pool, log *slog.Logger) *Subscriber {
	return &Subscriber{
		conn:    conn,
		subject: subject,
		group:   group,
		pool:    pool,
		log:     log.With("component", "queue", "subject", subject),
	}
}

func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx = ctx
	sub, err := s.conn.QueueSubscribe(s.subject, s.group, s.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.sub = sub
	s.log.Info("queue subscriber started", "group", s.group)
	return nil
}

// Stop drains the subscription and waits until the pending messages have
// been handed to the pool, or ctx ends. The pool must outlive Stop.
func (s *Subscriber) Stop(ctx context.Context) error {
	if s.sub == nil {
		return nil
	}
	if err := s.sub.Drain(); err != nil {
		return fmt.Errorf("drain %s: %w", s.subject, err)
	}
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for s.sub.IsValid() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("drain %s: %w", s.subject, ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

func (s *Subscriber) handle(msg *nats.Msg) {
	var t task.Tarea
	if err := json.Unmarshal(msg.Data, &t); err != nil {
		s.log.Warn("discarding malformed tarea", "error", err, "bytes", len(msg.Data))
		return
	}
	if !t.Nombre.Valido() {
		s.log.Warn("discarding unknown tarea", "tarea_id", t.ID, "nombre", t.Nombre)
		return
	}

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if msg.Header != nil {
		if id := msg.Header.Get(headerCorrelationID); id != "" {
			ctx = ctxutil.WithCorrelationID(ctx, id)
		}
	}
	if err := s.pool.Submit(ctx, t); err != nil {
		s.log.Error("tarea not submitted", "tarea_id", t.ID, "nombre", t.Nombre, "error", err)
	}
}

var _ task.Queue = (*Publisher)(nil)
