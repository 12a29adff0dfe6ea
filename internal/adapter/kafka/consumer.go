package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"transfer-settlement-service/config"
	"transfer-settlement-service/internal/core/domain"
	"transfer-settlement-service/internal/core/ports"
	"transfer-settlement-service/internal/metrics"
	"transfer-settlement-service/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the slice of kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterPublisher forwards unprocessable messages for offline review.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, original kafka.Message, reason string) error
}

// NewReader creates a consumer-group reader for the transfer topic.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// SettlementConsumer drives the pipeline: fetch, settle, commit. Offsets
// are committed only after the settlement outcome is durable, so a crash
// between settle and commit produces a redelivery that the idempotency
// key absorbs.
type SettlementConsumer struct {
	reader     MessageReader
	settler    ports.SettlementService
	deadLetter DeadLetterPublisher
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger
}

// NewSettlementConsumer creates a new consumer.
func NewSettlementConsumer(
	reader MessageReader,
	settler ports.SettlementService,
	deadLetter DeadLetterPublisher,
	cfg config.ConsumerConfig,
	log zerolog.Logger,
) *SettlementConsumer {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &SettlementConsumer{
		reader:     reader,
		settler:    settler,
		deadLetter: deadLetter,
		maxRetries: maxRetries,
		backoff:    cfg.Backoff,
		log:        log.With().Str("component", "settlement_consumer").Logger(),
	}
}

// Run consumes until the context is cancelled. It returns nil on clean
// shutdown and the fetch error otherwise.
func (c *SettlementConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		// A message must reach a durable outcome (settled, replayed, or
		// dead-lettered) before its offset is committed. Offset commits
		// are cumulative per partition, so advancing to the next message
		// would implicitly acknowledge this one and drop it silently.
		for {
			err := c.processMessage(ctx, msg)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("message unresolved, retrying before advancing")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("offset commit failed")
		}
	}
}

// processMessage settles one delivery. A nil return means the outcome is
// durable (settled, replayed, rejected, or dead-lettered) and the offset
// may be committed. Latency is observed for every terminal outcome, not
// just first-attempt successes.
func (c *SettlementConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	start := time.Now()
	if err := c.resolveMessage(ctx, msg); err != nil {
		return err
	}
	metrics.SettlementDuration.Observe(float64(time.Since(start).Milliseconds()))
	return nil
}

func (c *SettlementConsumer) resolveMessage(ctx context.Context, msg kafka.Message) error {
	key := domain.BuildIdempotencyKey(msg.Topic, msg.Partition, msg.Offset)
	log := c.log.With().
		Str("idempotency_key", key).
		Int64("offset", msg.Offset).
		Logger()

	var transfer domain.TransferRequest
	if err := json.Unmarshal(msg.Value, &transfer); err != nil {
		log.Warn().Err(err).Msg("malformed transfer event")
		return c.toDeadLetter(ctx, msg, "malformed payload: "+err.Error())
	}

	req := ports.SettleRequest{IdempotencyKey: key, Transfer: transfer}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		entry, err := c.settler.Settle(ctx, req)
		if err == nil {
			if entry == nil {
				metrics.DuplicatesSkipped.Inc()
				log.Info().Msg("duplicate delivery skipped")
			} else {
				metrics.TransfersSettled.Inc()
				log.Info().Int64("entry_id", entry.ID).Msg("transfer settled")
			}
			return nil
		}

		if !apperror.IsRetryable(err) {
			log.Info().Err(err).Msg("transfer rejected")
			if dlqErr := c.toDeadLetter(ctx, msg, "rejected: "+err.Error()); dlqErr != nil {
				return dlqErr
			}
			metrics.TransfersRejected.WithLabelValues(apperror.Code(err)).Inc()
			return nil
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("transient settlement failure")

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
	}

	log.Error().Err(lastErr).Msg("settlement retries exhausted")
	return c.toDeadLetter(ctx, msg, "retries exhausted: "+lastErr.Error())
}

func (c *SettlementConsumer) toDeadLetter(ctx context.Context, msg kafka.Message, reason string) error {
	if err := c.deadLetter.Publish(ctx, msg, reason); err != nil {
		return err
	}
	metrics.MessagesDeadLettered.Inc()
	return nil
}
