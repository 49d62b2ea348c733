// Package leadbus publishes accepted leads to NATS so CRM and analytics
// consumers can pick them up without polling the database.
package leadbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// HeaderLeadID carries the submission id on every published message.
const HeaderLeadID = "Lead-Id"

// Publisher sends one lead event.
type Publisher interface {
	Publish(ctx context.Context, variant, leadID string, data []byte) error
}

// Subject returns the subject a variant is published on: <prefix>.<variant>.
// Characters with a meaning in NATS subjects are replaced.
func Subject(prefix, variant string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, variant)
	if clean == "" {
		clean = "_"
	}
	return prefix + "." + clean
}

// NATSPublisher publishes lead events on a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(conn *nats.Conn, prefix string) (*NATSPublisher, error) {
	if conn == nil {
		return nil, errors.New("leadbus: connection cannot be nil")
	}
	if prefix == "" {
		return nil, errors.New("leadbus: subject prefix is required")
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Publish sends data and waits until the server has received it.
func (p *NATSPublisher) Publish(ctx context.Context, variant, leadID string, data []byte) error {
	msg := nats.NewMsg(Subject(p.prefix, variant))
	msg.Header.Set(HeaderLeadID, leadID)
	msg.Data = data

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("leadbus: publish %s: %w", msg.Subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("leadbus: flush %s: %w", msg.Subject, err)
	}
	slog.Debug("lead published", "subject", msg.Subject, "id", leadID)
	return nil
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("leadwizard-api"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("leadbus: connect %s: %w", url, err)
	}
	return conn, nil
}

// StartEmbedded runs a NATS server inside the process without opening
// network ports and connects to it. Used for local runs and tests.
func StartEmbedded() (*server.Server, *nats.Conn, error) {
	ns, err := server.NewServer(&server.Options{DontListen: true})
	if err != nil {
		return nil, nil, fmt.Errorf("leadbus: create embedded server: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		ns.Shutdown()
		return nil, nil, errors.New("leadbus: embedded server failed to start within timeout")
	}
	conn, err := nats.Connect("", nats.InProcessServer(ns))
	if err != nil {
		ns.Shutdown()
		return nil, nil, fmt.Errorf("leadbus: connect in-process: %w", err)
	}
	return ns, conn, nil
}

// Close drains the connection and stops the embedded server, if any.
func Close(conn *nats.Conn, ns *server.Server) {
	if conn != nil {
		if err := conn.Drain(); err != nil {
			slog.Warn("nats drain failed, forcing close", "error", err)
			conn.Close()
		}
	}
	if ns != nil {
		ns.Shutdown()
		ns.WaitForShutdown()
	}
}
