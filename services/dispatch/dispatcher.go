// Package dispatch hands assembled lead payloads to their destinations
// (database, sales inbox, event bus) in the background. The caller gets a
// submission id back immediately; delivery failures are logged, never
// returned to the visitor.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadwizard/api/services/storage"
	"leadwizard/api/services/wizard"
)

// defaultTimeout bounds the delivery of one submission to all sinks.
const defaultTimeout = 15 * time.Second

// Sink is one destination of accepted submissions.
type Sink interface {
	Deliver(ctx context.Context, s storage.Submission) error
}

// Dispatcher fans submissions out to its sinks asynchronously.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// New creates a dispatcher delivering to sinks in order. A non-positive
// timeout falls back to the default.
func New(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{sinks: sinks, timeout: timeout, now: time.Now}
}

// Dispatch marshals the payload, assigns it an id and starts delivery in
// the background. Only a payload that cannot be encoded is reported.
func (d *Dispatcher) Dispatch(variant string, payload wizard.Payload) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	sub := storage.Submission{
		ID:          uuid.New(),
		Variant:     variant,
		Payload:     body,
		SubmittedAt: d.now().UTC(),
	}

	d.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.deliver(ctx, sub)
	})
	return sub.ID, nil
}

// Wait blocks until every started delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, sub storage.Submission) {
	failed := 0
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, sub); err != nil {
			failed++
			slog.Error("lead delivery failed",
				"id", sub.ID,
				"variant", sub.Variant,
				"sink", fmt.Sprintf("%T", s),
				"error", err,
			)
		}
	}
	if failed == 0 {
		slog.Info("lead delivered", "id", sub.ID, "variant", sub.Variant, "sinks", len(d.sinks))
	}
}
