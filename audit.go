package promptgate

import (
	"io"
	"log/slog"

	"github.com/immerseseoul/promptgate/internal/audit"
)

// AuditEvent is one audit record emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = audit.ChannelSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink writes one JSON audit record per line to w.
func NewJSONWriterSink(w io.Writer) AuditSink { return audit.NewJSONWriterSink(w) }

// NewSlogSink logs audit records through logger.
func NewSlogSink(logger *slog.Logger) AuditSink { return audit.NewSlogSink(logger) }
