package mq

import "context"

// NoopBackend discards every message. It is the default when no broker
// is configured, so the server can run without one.
type NoopBackend struct{}

func NewNoopBackend() *NoopBackend {
	return &NoopBackend{}
}

func (n *NoopBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return "", nil
}

func (n *NoopBackend) Close() error {
	return nil
}
