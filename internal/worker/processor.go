// Package worker consumes session events and keeps the dashboard cache current.
package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/oneany574/eduflow-calendar-hub/internal/attendance"
	"github.com/oneany574/eduflow-calendar-hub/internal/metrics"
	"github.com/oneany574/eduflow-calendar-hub/internal/queue"
	"github.com/oneany574/eduflow-calendar-hub/internal/session"
)

// Cache is the part of store.SummaryCache the worker writes to.
type Cache interface {
	PutSummary(ctx context.Context, sessionID string, sum attendance.Summary) error
	IncrEvent(ctx context.Context, typ string) error
}

// Processor handles one message at a time.
type Processor struct {
	cache Cache
	log   *zap.Logger
}

func NewProcessor(cache Cache, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{cache: cache, log: log}
}

// Handle counts the event and caches attendance summaries.
// Unknown event types are ignored.
func (p *Processor) Handle(ctx context.Context, msg queue.Message) error {
	err := p.handle(ctx, msg)
	result := "ok"
	switch {
	case errors.Is(err, errIgnored):
		result, err = "ignored", nil
	case err != nil:
		result = "error"
	}
	metrics.WorkerEvents.WithLabelValues(msg.Type, result).Inc()
	return err
}

var errIgnored = errors.New("ignored")

func (p *Processor) handle(ctx context.Context, msg queue.Message) error {
	switch {
	case msg.Type == session.EventAttendanceSaved:
		var evt session.AttendanceEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			return errors.Wrap(err, "decoding attendance event")
		}
		if evt.SessionID == "" {
			return errors.New("attendance event without session id")
		}
		if err := p.cache.PutSummary(ctx, evt.SessionID, evt.Summary); err != nil {
			return err
		}
		p.log.Debug("attendance summary cached", zap.String("session_id", evt.SessionID), zap.Int("rate", evt.Summary.Rate))
	case strings.HasPrefix(msg.Type, "session."):
		var evt session.SessionEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			return errors.Wrap(err, "decoding session event")
		}
		p.log.Debug("session event", zap.String("type", msg.Type), zap.String("session_id", evt.SessionID), zap.String("status", string(evt.Status)))
	default:
		return errIgnored
	}
	return p.cache.IncrEvent(ctx, msg.Type)
}

// Run handles messages from q until ctx is done or the queue closes.
// Failed messages are logged and dropped.
func (p *Processor) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return errors.Wrap(err, "queue consume init failed")
	}
	for msg := range messages {
		if err := p.Handle(ctx, msg); err != nil {
			p.log.Warn("event failed", zap.String("type", msg.Type), zap.Error(err))
		}
	}
	return nil
}
