package mq

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/usermgmt/apiserver/config"
	"google.golang.org/api/option"
)

// PubSubClient wraps the Google Cloud Pub/Sub SDK client.
type PubSubClient struct {
	client *pubsub.Client
}

// NewPubSubClient constructs a Pub/Sub client from config.
func NewPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*PubSubClient, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("pubsub project id is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	return &PubSubClient{client: client}, nil
}

// Publish sends a message to the named topic, creating it if needed.
func (p *PubSubClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("pubsub channel is required")
	}

	topic, err := p.ensureTopic(ctx, channel)
	if err != nil {
		return "", err
	}
	result := topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	return result.Get(ctx)
}

// Close closes the underlying Pub/Sub client.
func (p *PubSubClient) Close() error {
	return p.client.Close()
}

func (p *PubSubClient) ensureTopic(ctx context.Context, name string) (*pubsub.Topic, error) {
	topic := p.client.Topic(name)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return p.client.CreateTopic(ctx, name)
	}
	return topic, nil
}
