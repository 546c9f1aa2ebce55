package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"

	"go.uber.org/zap"
)

// PubSub publishes each message as JSON to a topic, with its kind as an attribute.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func NewPubSub(ctx context.Context, cfg config.PubSubConfig) (*PubSub, error) {
	if cfg.ProjectID == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("pubsub project_id and topic are required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return NewPubSubWithClient(client, cfg.Topic), nil
}

func NewPubSubWithClient(client *pubsub.Client, topicID string) *PubSub {
	return &PubSub{client: client, topic: client.Topic(topicID)}
}

func (p *PubSub) Notify(ctx context.Context, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	id, err := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"kind": m.Kind},
	}).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	log.LogDebug("Published notification", zap.String("id", id), zap.String("kind", m.Kind))
	return nil
}

func (p *PubSub) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close pubsub client: %w", err)
	}
	return nil
}
