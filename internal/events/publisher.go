// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

// Package events publishes job results through Watermill so that other
// services (digest mailers, cache warmers) can react to finished jobs.
//
// Backends: "none" discards events, "channel" uses the in-process gochannel
// pub/sub, and "nats" publishes to core NATS subjects.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/encore/internal/config"
	"github.com/tomtom215/encore/internal/logging"
	"github.com/tomtom215/encore/internal/metrics"
)

// DefaultTopic receives job results when none is configured.
const DefaultTopic = "encore.jobs.completed"

// ErrClosed is returned when publishing after Close.
var ErrClosed = errors.New("event publisher is closed")

// JobCompleted is the payload of a finished job.
type JobCompleted struct {
	JobID      string    `json:"jobId"`
	JobType    string    `json:"jobType"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	Timestamp  time.Time `json:"timestamp"`
	Data       any       `json:"data,omitempty"`
}

// Publisher sends job events to one topic. A Publisher with no backend
// accepts and drops every event.
type Publisher struct {
	pub   message.Publisher
	sub   message.Subscriber
	topic string

	mu     sync.RWMutex
	closed bool
}

// New builds the publisher for cfg.Backend.
func New(cfg config.EventsConfig) (*Publisher, error) {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	logger := watermill.NewSlogLogger(logging.NewSlogLogger("events"))

	switch cfg.Backend {
	case "", "none":
		return &Publisher{topic: topic}, nil
	case "channel":
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		return &Publisher{pub: ch, sub: ch, topic: topic}, nil
	case "nats":
		pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
			URL: cfg.NATSURL,
			NatsOptions: []natsgo.Option{
				natsgo.Name("encore"),
				natsgo.RetryOnFailedConnect(true),
				natsgo.MaxReconnects(-1),
				natsgo.ReconnectWait(2 * time.Second),
				natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
					if err != nil {
						logging.Warn().Err(err).Msg("NATS disconnected")
					}
				}),
				natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
					logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
				}),
			},
			Marshaler: &wmNats.NATSMarshaler{},
			JetStream: wmNats.JetStreamConfig{Disabled: true},
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create nats publisher: %w", err)
		}
		return &Publisher{pub: pub, topic: topic}, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// NewWithPublisher wraps an existing Watermill publisher.
func NewWithPublisher(pub message.Publisher, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{pub: pub, topic: topic}
}

// Topic returns the topic events are published to.
func (p *Publisher) Topic() string { return p.topic }

// Subscriber returns the in-process subscriber of the channel backend, or nil.
func (p *Publisher) Subscriber() message.Subscriber { return p.sub }

// PublishJobCompleted publishes ev. The correlation id of ctx travels in the
// message metadata.
func (p *Publisher) PublishJobCompleted(ctx context.Context, ev JobCompleted) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if p.pub == nil {
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode job event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set("job_type", ev.JobType)
	msg.Metadata.Set("job_id", ev.JobID)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}
	msg.SetContext(ctx)

	err = p.pub.Publish(p.topic, msg)
	metrics.RecordEventPublished(err)
	if err != nil {
		return fmt.Errorf("publish job event: %w", err)
	}
	return nil
}

// Close shuts the backend down. Closing twice is a no-op.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.pub == nil {
		return nil
	}
	return p.pub.Close()
}

// Decode parses a job event payload.
func Decode(payload []byte) (JobCompleted, error) {
	var ev JobCompleted
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ev, fmt.Errorf("decode job event: %w", err)
	}
	return ev, nil
}
