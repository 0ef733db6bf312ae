package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/cleaning-ops/internal/email"
	"github.com/example/cleaning-ops/internal/persistence"
)

// OutboxMailer delivers mail by queueing it in the outbox table. A separate
// sender drains the queue.
type OutboxMailer struct {
	outbox      persistence.OutboxRepository
	idGenerator func() string
	now         func() time.Time
}

// NewOutboxMailer constructs a mailer writing to outbox.
func NewOutboxMailer(outbox persistence.OutboxRepository, idGenerator func() string, now func() time.Time) *OutboxMailer {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &OutboxMailer{outbox: outbox, idGenerator: idGenerator, now: now}
}

// Send implements email.Mailer.
func (m *OutboxMailer) Send(ctx context.Context, msg email.Message) error {
	if m == nil || m.outbox == nil {
		return fmt.Errorf("outbox not configured")
	}
	return m.outbox.EnqueueOutbox(ctx, persistence.OutboxMessage{
		ID:        m.idGenerator(),
		Recipient: msg.To,
		Subject:   msg.Subject,
		HTML:      msg.HTML,
		Text:      msg.Text,
		QueuedAt:  m.now().UTC(),
	})
}

// notifier renders and sends mail. Delivery failures are reported to the
// caller for logging and never fail the write that triggered them.
type notifier struct {
	renderer *email.Renderer
	mailer   email.Mailer
}

func (n notifier) enabled() bool {
	return n.renderer != nil && n.mailer != nil
}

func (n notifier) send(ctx context.Context, render func(*email.Renderer) (email.Message, error)) error {
	if !n.enabled() {
		return nil
	}
	msg, err := render(n.renderer)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}
