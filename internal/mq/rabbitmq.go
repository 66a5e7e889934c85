package mq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/usermgmt/apiserver/config"
)

// RabbitMQClient wraps a RabbitMQ connection/channel pair.
type RabbitMQClient struct {
	conn            *amqp.Connection
	channel         *amqp.Channel
	queueDurable    bool
	queueAutoDelete bool
}

// NewRabbitMQClient constructs a RabbitMQ client from config.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQClient{
		conn:            conn,
		channel:         ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
	}, nil
}

// Publish sends a message to the named queue.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	if _, err := r.channel.QueueDeclare(channel, r.queueDurable, r.queueAutoDelete, false, false, nil); err != nil {
		return "", err
	}

	headers := amqp.Table{}
	for key, value := range attrs {
		headers[key] = value
	}

	messageID := newMessageID()
	err := r.channel.PublishWithContext(ctx, "", channel, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   messageID,
		Headers:     headers,
		Body:        data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func newMessageID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(buf[:])
}
