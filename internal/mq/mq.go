// Package mq provides a broker-agnostic publisher with RabbitMQ and
// Google Pub/Sub backends. The account service only emits; there is no
// consume path.
package mq

import (
	"context"
	"fmt"
	"strings"

	"github.com/usermgmt/apiserver/config"
)

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// MQ wraps a backend with a stable API.
type MQ struct {
	backend Backend
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// NewFromConfig selects and constructs a backend from config. An empty
// or "none" backend yields a no-op publisher.
func NewFromConfig(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return New(NewNoopBackend()), nil
	case "rabbitmq":
		backend, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	case "pubsub":
		backend, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return New(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Publish sends a message to the named channel.
func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}
