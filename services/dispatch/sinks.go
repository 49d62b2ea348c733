package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"leadwizard/api/pkg/clients/email"
	"leadwizard/api/pkg/clients/leadbus"
	"leadwizard/api/services/storage"
)

// StorageSink persists submissions.
type StorageSink struct {
	Store storage.Storage
}

func (s StorageSink) Deliver(ctx context.Context, sub storage.Submission) error {
	return s.Store.SaveSubmission(ctx, sub)
}

// NotifySink emails every submission to the sales inbox.
type NotifySink struct {
	Client email.Client
	To     string
	From   string
}

func (s NotifySink) Deliver(ctx context.Context, sub storage.Submission) error {
	var body bytes.Buffer
	fmt.Fprintf(&body, "Lead %s\nForm: %s\nReceived: %s\n\n", sub.ID, sub.Variant, sub.SubmittedAt.Format("2006-01-02 15:04:05 MST"))
	if err := json.Indent(&body, sub.Payload, "", "  "); err != nil {
		return fmt.Errorf("failed to format payload: %w", err)
	}

	res, err := s.Client.Send(ctx, email.Message{
		To:      s.To,
		From:    s.From,
		Subject: fmt.Sprintf("New lead: %s", sub.Variant),
		Body:    body.String(),
	})
	if err != nil {
		return err
	}
	if !res.Sent {
		return fmt.Errorf("notification not sent: %s", res.DeliveryStatus)
	}
	return nil
}

// PublishSink announces submissions on the event bus.
type PublishSink struct {
	Publisher leadbus.Publisher
}

func (s PublishSink) Deliver(ctx context.Context, sub storage.Submission) error {
	return s.Publisher.Publish(ctx, sub.Variant, sub.ID.String(), sub.Payload)
}
