package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// PublishableResult is a processed command's outcome, published for
// downstream consumers after the store transaction committed.
type PublishableResult struct {
	Kind      string      `json:"kind"`
	IntentID  uuid.UUID   `json:"intent_id"`
	Owner     uuid.UUID   `json:"owner"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// OutboundPublisher publishes settlement results to NATS. Subjects follow
// synth.settlements.{kind}.
type OutboundPublisher struct {
	js  jetstream.JetStream
	in  <-chan PublishableResult
	log zerolog.Logger
}

func NewOutboundPublisher(js jetstream.JetStream, in <-chan PublishableResult, log zerolog.Logger) *OutboundPublisher {
	return &OutboundPublisher{js: js, in: in, log: log}
}

// Run starts the outbound publisher loop. Publish failures are non-fatal;
// downstream consumers can query the store directly.
func (p *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res, ok := <-p.in:
			if !ok {
				return nil
			}
			if err := p.publish(ctx, res); err != nil {
				p.log.Warn().
					Str("kind", res.Kind).
					Stringer("intent_id", res.IntentID).
					Err(err).
					Msg("outbound publish failed")
			}
		}
	}
}

func (p *OutboundPublisher) publish(ctx context.Context, res PublishableResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	subject := fmt.Sprintf("synth.settlements.%s", res.Kind)
	_, err = p.js.Publish(ctx, subject, data)
	return err
}

// EnsureOutboundStream creates the settlements stream.
func EnsureOutboundStream(ctx context.Context, js jetstream.JetStream, log zerolog.Logger) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "SYNTH_SETTLEMENTS",
		Subjects:  []string{"synth.settlements.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	log.Info().Str("stream", "SYNTH_SETTLEMENTS").Msg("ensured stream")
	return nil
}
