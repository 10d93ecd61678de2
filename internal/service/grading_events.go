package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// natsGradingPublisher pushes grading events onto a NATS subject so other
// course services (notifications, gradebook sync) can react to them.
type natsGradingPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSGradingPublisher constructs a publisher bound to the given subject.
// A nil connection yields a no-op publisher so grading never depends on the
// broker being up.
func NewNATSGradingPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) GradingEventPublisher {
	return &natsGradingPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "grading_events").Logger(),
	}
}

func (p *natsGradingPublisher) Publish(ctx context.Context, event GradingEvent) error {
	if p.conn == nil || p.subject == "" {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return err
	}

	p.logger.Debug().
		Str("action", event.Action).
		Uint("submission_id", event.SubmissionID).
		Msg("grading event published")

	return nil
}
