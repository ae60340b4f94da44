// Package amqp carries rate refresh requests from the API to the rates worker.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/log"
)

const (
	failureThreshold = 5
	breakerCooldown  = 30 * time.Second
	publishTimeout   = 5 * time.Second
	maxBackoff       = 30 * time.Second
	// requeueDelay holds a failed delivery before it is requeued. With QoS 1
	// this also pauses consumption while the rates API is failing.
	requeueDelay = 10 * time.Second
)

// Topology names the durable direct exchange and the queue bound to it.
// The queue name doubles as routing key.
type Topology struct {
	Exchange string
	Queue    string
}

func (t Topology) declare(ch *amqp091.Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, amqp091.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", t.Queue, err)
	}
	if err := ch.QueueBind(t.Queue, t.Queue, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", t.Queue, err)
	}
	// one refresh in flight per consumer
	return ch.Qos(1, 0, false)
}

type Client struct {
	url      string
	topology Topology
	logger   *log.Logger
	breaker  *breaker
	// requeueDelay is the pause before a failed delivery goes back to the queue.
	requeueDelay time.Duration

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewClient(url, exchange, queue string, logger *log.Logger) (*Client, error) {
	c := newClient(url, Topology{Exchange: exchange, Queue: queue}, logger)
	if err := c.dial(); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(url string, topology Topology, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		url:      url,
		topology: topology,
		logger:   logger.WithComponent(log.ComponentAMQP),
		breaker:  newBreaker(failureThreshold, breakerCooldown),

		requeueDelay: requeueDelay,
	}
}

func (c *Client) dial() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := c.topology.declare(ch); err != nil {
		_ = conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishRateRefresh asks the rates worker to refresh a user's currency rates.
// userID 0 targets the system currencies.
func (c *Client) PublishRateRefresh(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.breaker.allow(); err != nil {
		return fmt.Errorf("publish rate refresh: %w", err)
	}

	msg := NewRateRefreshMessage(userID)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.currentChannel()
	if ch == nil {
		c.breaker.failure()
		return errors.New("publish rate refresh: channel not open")
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, c.topology.Exchange, c.topology.Queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.RequestedAt,
		Body:         body,
	})
	if err != nil {
		c.breaker.failure()
		if isConnectionError(err) {
			c.logger.WarnContext(ctx, "AMQP connection lost, redialing", log.FieldError, err)
			if rerr := c.redial(ctx); rerr != nil {
				c.logger.ErrorContext(ctx, "AMQP redial failed", log.FieldError, rerr)
			}
		}
		return fmt.Errorf("publish rate refresh: %w", err)
	}
	c.breaker.success()

	c.logger.DebugContext(ctx, "Published rate refresh",
		log.FieldUserID, userID,
		"message_id", msg.ID,
		"queue", c.topology.Queue)
	return nil
}

// Handler processes one decoded refresh request.
type Handler func(context.Context, *RateRefreshMessage) error

// ConsumeRateRefresh delivers refresh messages to handle until ctx is done.
// Malformed messages are dropped and handler failures requeued after a delay.
// A lost connection is redialed and consumption resumes.
func (c *Client) ConsumeRateRefresh(ctx context.Context, handle Handler) error {
	for attempt := 0; ; attempt++ {
		err := c.consume(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WarnContext(ctx, "Consumer stopped, redialing", log.FieldError, err, "attempt", attempt+1)
		if rerr := c.redial(ctx); rerr != nil {
			c.logger.ErrorContext(ctx, "AMQP redial failed", log.FieldError, rerr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
			continue
		}
		attempt = -1
	}
}

// consume runs one consumer on the current channel until ctx ends or the
// delivery channel closes.
func (c *Client) consume(ctx context.Context, handle Handler) error {
	ch := c.currentChannel()
	if ch == nil {
		return errors.New("consume: channel not open")
	}
	deliveries, err := ch.ConsumeWithContext(ctx, c.topology.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.topology.Queue, err)
	}

	c.logger.InfoContext(ctx, "Consuming rate refresh requests", "queue", c.topology.Queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("consume: delivery channel closed")
			}
			settle(ctx, c.logger, &d, d.Body, handle, c.requeueDelay)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle decodes body, runs handle and acks or nacks the delivery. A failed
// delivery is requeued only after delay, or as soon as ctx ends.
func settle(ctx context.Context, logger *log.Logger, ack acknowledger, body []byte, handle Handler, delay time.Duration) {
	msg, err := RateRefreshMessageFromJSON(body)
	if err != nil {
		logger.ErrorContext(ctx, "Dropping malformed refresh message", log.FieldError, err)
		_ = ack.Nack(false, false)
		return
	}
	if err := handle(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Rate refresh failed, requeueing",
			log.FieldError, err,
			log.FieldUserID, msg.UserID,
			"message_id", msg.ID,
			"delay", delay)
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
			case <-t.C:
			}
			t.Stop()
		}
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
	logger.InfoContext(ctx, "Rate refresh handled", log.FieldUserID, msg.UserID, "message_id", msg.ID)
}

func (c *Client) redial(ctx context.Context) error {
	_ = c.Close()
	for attempt := 0; attempt < failureThreshold; attempt++ {
		if err := c.dial(); err == nil {
			c.logger.InfoContext(ctx, "AMQP redialed", "attempt", attempt+1)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return fmt.Errorf("redial: gave up after %d attempts", failureThreshold)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// backoff doubles from one second and caps at maxBackoff.
func backoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
