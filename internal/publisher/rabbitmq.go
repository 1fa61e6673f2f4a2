package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tweet_monitor/internal/domain"
)

const (
	ChannelPrefix  = "new-tweets-notifications:"
	EventNewTweets = "new_tweets"
)

// RabbitMQ broadcasts realtime events on a topic exchange. The routing key
// is the per-user channel name.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

type Config struct {
	URL      string
	Exchange string
	// QueueName optionally declares a durable queue bound to every channel.
	QueueName string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if cfg.QueueName != "" {
		q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declare queue: %w", err)
		}
		if err := ch.QueueBind(q.Name, "#", cfg.Exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("bind queue: %w", err)
		}
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
	)

	return &RabbitMQ{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

// Broadcast is the envelope delivered to realtime subscribers.
type Broadcast struct {
	Type    string           `json:"type"`
	Event   string           `json:"event"`
	Payload NewTweetsPayload `json:"payload"`
}

type NewTweetsPayload struct {
	AccountUsername string         `json:"account_username"`
	Count           int            `json:"count"`
	Tweets          []domain.Tweet `json:"tweets"`
}

// ChannelName returns the realtime channel for a user.
func ChannelName(userID string) string {
	return ChannelPrefix + userID
}

func (r *RabbitMQ) PublishNewTweets(ctx context.Context, userID, username string, tweets []domain.Tweet) error {
	msg := Broadcast{
		Type:  "broadcast",
		Event: EventNewTweets,
		Payload: NewTweetsPayload{
			AccountUsername: username,
			Count:           len(tweets),
			Tweets:          tweets,
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	channel := ChannelName(userID)
	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		channel,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Type:        EventNewTweets,
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published broadcast",
		"channel", channel,
		"count", len(tweets),
	)

	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
