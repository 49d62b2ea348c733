package email

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/wneessen/go-mail"
)

// Message represents an email to be sent.
type Message struct {
	To      string
	From    string
	Subject string
	Body    string
}

// Result holds the outcome of a send attempt.
type Result struct {
	DeliveryStatus string
	Sent           bool
}

// Client defines the interface for sending emails.
// Implementations can be swapped between a stub (for dev/testing)
// and a real SMTP relay.
type Client interface {
	Send(ctx context.Context, msg Message) (*Result, error)
}

// StubClient simulates sending emails by logging them. Sent messages are
// kept so tests can inspect them.
type StubClient struct {
	FromAddress string

	mu   sync.Mutex
	sent []Message
}

// NewStubClient creates an email client that logs instead of sending.
func NewStubClient(fromAddress string) *StubClient {
	return &StubClient{FromAddress: fromAddress}
}

func (c *StubClient) Send(_ context.Context, msg Message) (*Result, error) {
	if msg.From == "" {
		msg.From = c.FromAddress
	}
	slog.Info("sending email (stub)", "to", msg.To, "from", msg.From, "subject", msg.Subject)

	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()

	return &Result{
		DeliveryStatus: "sent",
		Sent:           true,
	}, nil
}

// Sent returns a copy of every message passed to Send.
func (c *StubClient) Sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.sent...)
}

// sendMailFunc delivers a built message, honouring ctx.
type sendMailFunc func(ctx context.Context, m *mail.Msg) error

// SMTPClient relays mail through an SMTP server without authentication,
// which is how the sales inbox relay is reached from inside the cluster.
// STARTTLS is used when the relay offers it.
type SMTPClient struct {
	Addr        string
	FromAddress string

	sendMail sendMailFunc
}

// NewSMTPClient creates a client for the relay at addr (host:port).
func NewSMTPClient(addr, fromAddress string) (*SMTPClient, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("email: invalid relay address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("email: invalid relay port %q: %w", portStr, err)
	}
	mc, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("email: create client for %s: %w", addr, err)
	}
	sendMail := func(ctx context.Context, m *mail.Msg) error { return mc.DialAndSendWithContext(ctx, m) }
	return &SMTPClient{Addr: addr, FromAddress: fromAddress, sendMail: sendMail}, nil
}

func (c *SMTPClient) Send(ctx context.Context, msg Message) (*Result, error) {
	if msg.From == "" {
		msg.From = c.FromAddress
	}
	if msg.To == "" {
		return nil, fmt.Errorf("email: recipient is required")
	}
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return nil, fmt.Errorf("email: subject contains a line break")
	}

	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("email: invalid sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("email: invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := c.sendMail(ctx, m); err != nil {
		return &Result{DeliveryStatus: "failed"}, fmt.Errorf("email: send via %s: %w", c.Addr, err)
	}
	slog.Debug("email sent", "to", msg.To, "subject", msg.Subject)
	return &Result{DeliveryStatus: "sent", Sent: true}, nil
}
