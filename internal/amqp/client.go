package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/sakshipatil0812/FinancialyAI/internal/core"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 60 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

type Client struct {
	url          string
	exchangeName string
	mirrorQueue  string
	alertQueue   string

	mu      sync.RWMutex // guards conn, channel, lastFailure
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64 // atomic
	state        int32 // atomic
	lastFailure  time.Time
}

func NewClient(url, exchangeName, mirrorQueue, alertQueue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		mirrorQueue:  mirrorQueue,
		alertQueue:   alertQueue,
		conn:         conn,
		channel:      channel,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	channel := c.ch()

	// Declare exchange
	err := channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{c.mirrorQueue, c.alertQueue} {
		// Declare queue
		_, err = channel.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}

		// Bind queue to exchange
		err = channel.QueueBind(
			queue,          // queue name
			queue,          // routing key (same as queue name for direct exchange)
			c.exchangeName, // exchange
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}

	return nil
}

func (c *Client) ch() *amqp091.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}

	c.mu.RLock()
	last := c.lastFailure
	c.mu.RUnlock()

	if time.Since(last) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	count := atomic.AddInt64(&c.failureCount, 1)

	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()

	if count >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
		slog.Warn("AMQP circuit breaker opened", "failures", count)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func exponentialBackoff(attempt int) time.Duration {
	backoff := time.Second << uint(min(attempt, 5))
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection closed",
		"unexpected EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// reconnect dials the broker again with exponential backoff, replacing the
// connection and channel and re-declaring the topology. It only returns an
// error when ctx is done.
func (c *Client) reconnect(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(exponentialBackoff(attempt)):
		}

		conn, err := amqp091.Dial(c.url)
		if err != nil {
			slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "error", err)
			continue
		}

		channel, err := conn.Channel()
		if err != nil {
			conn.Close()
			slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "error", err)
			continue
		}

		c.mu.Lock()
		oldConn, oldChannel := c.conn, c.channel
		c.conn, c.channel = conn, channel
		c.mu.Unlock()

		if oldChannel != nil {
			oldChannel.Close()
		}
		if oldConn != nil {
			oldConn.Close()
		}

		if err := c.setup(); err != nil {
			slog.WarnContext(ctx, "AMQP reconnect setup failed", "attempt", attempt+1, "error", err)
			continue
		}

		c.recordSuccess()
		slog.InfoContext(ctx, "Reconnected to AMQP broker", "attempts", attempt+1)
		return nil
	}
}

func (c *Client) publish(ctx context.Context, queue string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, dropping publish to %s", queue)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := c.ch().PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		queue,          // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.recordFailure()
		}
		return fmt.Errorf("publish to %s: %w", queue, err)
	}

	c.recordSuccess()
	return nil
}

// PublishMirror publishes a mirror message for one expense
func (c *Client) PublishMirror(ctx context.Context, expenseID, action string) error {
	msg := NewMirrorMessage(expenseID, action)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal mirror message: %w", err)
	}

	if err := c.publish(ctx, c.mirrorQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published mirror message",
		"expense_id", expenseID,
		"action", action,
		"exchange", c.exchangeName,
		"queue", c.mirrorQueue)

	return nil
}

// PublishAlert publishes an alert message for one notification
func (c *Client) PublishAlert(ctx context.Context, n core.Notification) error {
	msg := NewAlertMessage(n)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal alert message: %w", err)
	}

	if err := c.publish(ctx, c.alertQueue, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published alert message",
		"notification_id", n.ID,
		"severity", n.Severity,
		"exchange", c.exchangeName,
		"queue", c.alertQueue)

	return nil
}

// ConsumeMirror consumes mirror messages until ctx is done
func (c *Client) ConsumeMirror(ctx context.Context, handler func(*MirrorMessage) error) error {
	return consumeLoop(ctx, c, c.mirrorQueue, MirrorMessageFromJSON, handler)
}

// ConsumeAlerts consumes alert messages until ctx is done
func (c *Client) ConsumeAlerts(ctx context.Context, handler func(*AlertMessage) error) error {
	return consumeLoop(ctx, c, c.alertQueue, AlertMessageFromJSON, handler)
}

func consumeLoop[T any](ctx context.Context, c *Client, queue string, parse func([]byte) (*T, error), handler func(*T) error) error {
	for {
		msgs, err := c.ch().Consume(
			queue, // queue
			"",    // consumer
			false, // auto-ack (we want manual ack)
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("start consuming from %s: %w", queue, err)
		}

		slog.InfoContext(ctx, "Started consuming messages", "queue", queue)

	receive:
		for {
			select {
			case <-ctx.Done():
				slog.InfoContext(ctx, "Stopping message consumption", "queue", queue, "reason", ctx.Err())
				return ctx.Err()
			case delivery, ok := <-msgs:
				if !ok {
					slog.WarnContext(ctx, "Delivery channel closed, reconnecting", "queue", queue)
					if err := c.reconnect(ctx); err != nil {
						return err
					}
					break receive
				}

				msg, err := parse(delivery.Body)
				if err != nil {
					slog.ErrorContext(ctx, "Failed to unmarshal message", "queue", queue, "error", err)
					delivery.Nack(false, false) // reject and don't requeue
					continue
				}

				if err := handler(msg); err != nil {
					slog.ErrorContext(ctx, "Failed to handle message", "queue", queue, "error", err)
					delivery.Nack(false, true) // reject and requeue
					continue
				}

				delivery.Ack(false) // acknowledge successful processing
			}
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
