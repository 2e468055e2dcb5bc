package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/outreach"
)

const (
	DefaultSMTPPort    = 587
	DefaultSMTPTimeout = 30 * time.Second
)

// SMTPConfig describes the mail server used for real delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLS is one of "mandatory", "opportunistic" or "none".
	TLS     string
	Timeout time.Duration
}

// Validate reports missing settings. Unusual ports are not an error and are
// returned as warnings.
func (c SMTPConfig) Validate() (warnings []string, err error) {
	verr := &outreach.ValidationError{Source: "smtp config"}
	if strings.TrimSpace(c.Host) == "" {
		verr.Add("smtp", "host", "is required")
	}
	if c.Username != "" && c.Password == "" {
		verr.Add("smtp", "password", "is required when a username is set")
	}
	if _, terr := tlsPolicy(c.TLS); terr != nil {
		verr.Add("smtp", "tls", terr.Error())
	}
	switch c.Port {
	case 0, 25, 465, 587, 2525:
	default:
		warnings = append(warnings, fmt.Sprintf("unusual smtp port %d", c.Port))
	}
	return warnings, verr.OrNil()
}

func tlsPolicy(raw string) (mail.TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "mandatory":
		return mail.TLSMandatory, nil
	case "opportunistic":
		return mail.TLSOpportunistic, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.TLSMandatory, fmt.Errorf("unknown tls policy %q", raw)
	}
}

// SMTPTransport delivers through a single SMTP connection, dialed on first use
// and reopened after a failed send.
type SMTPTransport struct {
	client    *mail.Client
	connected bool
	logger    *zap.Logger
}

// NewSMTPTransport creates the client without connecting.
func NewSMTPTransport(cfg SMTPConfig, logger *zap.Logger) (*SMTPTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy, _ := tlsPolicy(cfg.TLS)
	port := cfg.Port
	if port == 0 {
		port = DefaultSMTPPort
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultSMTPTimeout
	}

	opts := []mail.Option{
		mail.WithTLSPolicy(policy),
		mail.WithPort(port),
		mail.WithTimeout(timeout),
	}
	if port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	return &SMTPTransport{client: client, logger: logger}, nil
}

func (t *SMTPTransport) Send(ctx context.Context, env Envelope) error {
	msg, err := env.Message()
	if err != nil {
		return fmt.Errorf("%w: %w", outreach.ErrTransport, err)
	}

	if !t.connected {
		t.logger.Debug("connecting to smtp server")
		if err := t.client.DialWithContext(ctx); err != nil {
			return classifySMTPError(err)
		}
		t.connected = true
	}

	result := make(chan error, 1)
	go func() {
		result <- t.client.Send(msg)
	}()

	select {
	case err := <-result:
		if err != nil {
			t.reset()
			return classifySMTPError(err)
		}
		return nil
	case <-ctx.Done():
		// the pending send stays bounded by the client timeout; the connection
		// is dropped once it returns
		<-result
		t.reset()
		return fmt.Errorf("%w: %w", outreach.ErrTransport, ctx.Err())
	}
}

func (t *SMTPTransport) reset() {
	if err := t.client.Close(); err != nil {
		t.logger.Debug("closing smtp connection", zap.Error(err))
	}
	t.connected = false
}

func (t *SMTPTransport) Close() error {
	if !t.connected {
		return nil
	}
	t.connected = false
	return t.client.Close()
}

func (t *SMTPTransport) Simulated() bool { return false }

func classifySMTPError(err error) error {
	if isAuthError(err) {
		return fmt.Errorf("%w: %w", outreach.ErrAuth, err)
	}
	return fmt.Errorf("%w: %w", outreach.ErrTransport, err)
}

func isAuthError(err error) bool {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch protoErr.Code {
		case 530, 534, 535, 538:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "auth failed") ||
		strings.Contains(msg, "535 ")
}
