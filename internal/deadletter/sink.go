package deadletter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hicommonwealth/chain-events/internal/broker"
	"github.com/hicommonwealth/chain-events/pkg/events"
)

// Publisher is the DLQ transport; satisfied by broker.Publisher.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
}

// Sink dead-letters a message: the raw payload goes to the durable DLQ
// stream, and a copy is archived to the object store. The DLQ publish is the
// correctness requirement; archival is best effort on top of it.
type Sink struct {
	publisher Publisher
	archiver  *Archiver
	logger    *slog.Logger
}

// NewSink builds a Sink. The archiver may be nil when no object store is
// configured; the DLQ publish alone keeps exhausted messages observable.
func NewSink(publisher Publisher, archiver *Archiver, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{publisher: publisher, archiver: archiver, logger: logger}
}

// DeadLetter routes one exhausted message. It fails only if the DLQ publish
// fails, in which case the caller must keep the message redeliverable.
func (s *Sink) DeadLetter(ctx context.Context, raw events.RawEvent, payload []byte, reason string) error {
	subject := broker.DeadLetterSubject(subjectToken(raw.Network), events.Standard(subjectToken(string(raw.Standard))))

	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("dlq publish: %w", err)
	}

	if s.archiver != nil {
		if _, err := s.archiver.Archive(ctx, raw, payload, reason); err != nil {
			s.logger.Error("dead letter archive failed",
				"network", raw.Network,
				"tx_hash", raw.TxHash,
				"error", err,
			)
		}
	}

	return nil
}

// subjectToken keeps NATS subjects well formed when a malformed event is
// missing its routing fields.
func subjectToken(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
