package email

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/wneessen/go-mail"
)

func TestStubClient_RecordsMessages(t *testing.T) {
	t.Parallel()
	c := NewStubClient("noreply@example.com")

	res, err := c.Send(context.Background(), Message{To: "sales@example.com", Subject: "New lead"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.Sent || res.DeliveryStatus != "sent" {
		t.Errorf("unexpected result: %+v", res)
	}
	sent := c.Sent()
	if len(sent) != 1 || sent[0].From != "noreply@example.com" {
		t.Errorf("expected one message from the default address, got %+v", sent)
	}
}

func TestNewSMTPClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "host and port", addr: "mail:25"},
		{name: "missing port", addr: "mail", wantErr: true},
		{name: "non-numeric port", addr: "mail:smtp", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := NewSMTPClient(tt.addr, "noreply@example.com")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.sendMail == nil {
				t.Error("expected a sender to be wired")
			}
		})
	}
}

func TestSMTPClient_Send(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      Message
		sendErr  error
		wantErr  bool
		wantSent bool
	}{
		{
			name:     "relays message",
			msg:      Message{To: "sales@example.com", Subject: "New lead: smm", Body: "line one\nline two"},
			wantSent: true,
		},
		{
			name:    "relay failure",
			msg:     Message{To: "sales@example.com", Subject: "x"},
			sendErr: errors.New("connection refused"),
			wantErr: true,
		},
		{
			name:    "missing recipient",
			msg:     Message{Subject: "x"},
			wantErr: true,
		},
		{
			name:    "malformed recipient",
			msg:     Message{To: "sales at example", Subject: "x"},
			wantErr: true,
		},
		{
			name:    "header injection",
			msg:     Message{To: "sales@example.com", Subject: "x\r\nBcc: evil@example.com"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got *mail.Msg
			c, err := NewSMTPClient("mail:25", "noreply@example.com")
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			c.sendMail = func(_ context.Context, m *mail.Msg) error {
				got = m
				return tt.sendErr
			}

			res, err := c.Send(context.Background(), tt.msg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if tt.sendErr != nil && (res == nil || res.DeliveryStatus != "failed") {
					t.Errorf("expected failed result, got %+v", res)
				}
				return
			}
			if err != nil {
				t.Fatalf("send: %v", err)
			}
			if res.Sent != tt.wantSent {
				t.Errorf("expected sent=%v, got %v", tt.wantSent, res.Sent)
			}

			from, err := got.GetSender(false)
			if err != nil || from != "noreply@example.com" {
				t.Errorf("expected default sender, got %q (%v)", from, err)
			}
			rcpts, err := got.GetRecipients()
			if err != nil {
				t.Fatalf("recipients: %v", err)
			}
			if diff := cmp.Diff([]string{"sales@example.com"}, rcpts); diff != "" {
				t.Errorf("recipients mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"New lead: smm"}, got.GetGenHeader(mail.HeaderSubject)); diff != "" {
				t.Errorf("subject mismatch (-want +got):\n%s", diff)
			}
			var buf bytes.Buffer
			if _, err := got.WriteTo(&buf); err != nil {
				t.Fatalf("render: %v", err)
			}
			if body := buf.String(); !strings.Contains(body, "line one") || !strings.Contains(body, "line two") {
				t.Errorf("unexpected message:\n%s", body)
			}
		})
	}
}

func TestSMTPClient_SendHonoursContext(t *testing.T) {
	t.Parallel()
	c, err := NewSMTPClient("mail:25", "noreply@example.com")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	// A relay that never answers returns only once the caller gives up.
	c.sendMail = func(ctx context.Context, _ *mail.Msg) error {
		<-ctx.Done()
		return ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := c.Send(ctx, Message{To: "sales@example.com", Subject: "x"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if res == nil || res.Sent {
		t.Errorf("expected unsent result, got %+v", res)
	}
}
