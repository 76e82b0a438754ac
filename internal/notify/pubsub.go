// Package notify publishes ingestion events to Google Pub/Sub so downstream
// consumers can pick up new artifacts without polling the object store.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
)

// EventType is sent in the "event" attribute of every message.
const EventType = "ingestion.completed"

// Publisher implements core.Notifier on a single Pub/Sub topic.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// New connects to Pub/Sub. Credentials come from cfg.CredentialsJSON when
// set, otherwise from Application Default Credentials.
func New(ctx context.Context, cfg config.PubSubConfig) (*Publisher, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("pubsub: project id is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("pubsub: topic is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client (project_id=%s): %w", cfg.ProjectID, err)
	}

	logging.FromContext(ctx).Info("pubsub client ready", "project_id", cfg.ProjectID, "topic", cfg.Topic)
	return &Publisher{client: client, topic: client.Topic(cfg.Topic)}, nil
}

// Publish sends evt and waits for the server to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, evt core.IngestEvent) error {
	msg, err := Message(evt)
	if err != nil {
		return err
	}
	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish %s: %w", evt.ArtifactPath, err)
	}
	logging.FromContext(ctx).Debug("ingest event published", "message_id", id, "artifact", evt.ArtifactPath)
	return nil
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// Message encodes evt as JSON with routing attributes, so subscribers can
// filter by tenant or dataset without decoding the body.
func Message(evt core.IngestEvent) (*pubsub.Message, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode ingest event: %w", err)
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event":     EventType,
			"tenant":    evt.TenantID,
			"dataset":   evt.DatasetKind,
			"duplicate": strconv.FormatBool(evt.Duplicate),
		},
	}, nil
}

var _ core.Notifier = (*Publisher)(nil)
