package handlers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// LoggingHandler records receipt of every event: it serializes the labeled
// event and writes one log line. It performs no storage and returns no
// derived result, establishing the minimal contract shape other handlers
// satisfy.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler writing through the given logger.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger}
}

func (h *LoggingHandler) Name() string { return "logging" }

func (h *LoggingHandler) Handle(ctx context.Context, ev *events.LabeledEvent) (any, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}

	h.logger.Info("chain event received",
		"heading", ev.Heading,
		"label", ev.Label,
		"event", string(data),
	)
	return nil, nil
}
