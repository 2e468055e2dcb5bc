package dispatch

import (
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"
)

// Envelope is a fully addressed message ready for a transport.
type Envelope struct {
	FromName string
	From     string
	ToName   string
	To       string
	ReplyTo  string
	Subject  string
	Body     string
}

// Message converts the envelope into a go-mail message.
func (e Envelope) Message() (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := setAddress(msg.FromFormat, e.FromName, e.From); err != nil {
		return nil, fmt.Errorf("from address %q: %w", e.From, err)
	}
	if err := setAddress(msg.AddToFormat, e.ToName, e.To); err != nil {
		return nil, fmt.Errorf("recipient address %q: %w", e.To, err)
	}
	if e.ReplyTo != "" {
		if err := msg.ReplyTo(e.ReplyTo); err != nil {
			return nil, fmt.Errorf("reply-to address %q: %w", e.ReplyTo, err)
		}
	}

	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextPlain, e.Body)
	return msg, nil
}

func setAddress(set func(name, addr string) error, name, addr string) error {
	return set(strings.TrimSpace(name), strings.TrimSpace(addr))
}

// Preview renders the envelope for a human to read before sending.
func (e Envelope) Preview() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From:     %s\n", formatAddress(e.FromName, e.From))
	fmt.Fprintf(&sb, "To:       %s\n", formatAddress(e.ToName, e.To))
	if e.ReplyTo != "" {
		fmt.Fprintf(&sb, "Reply-To: %s\n", e.ReplyTo)
	}
	fmt.Fprintf(&sb, "Subject:  %s\n\n", e.Subject)
	sb.WriteString(e.Body)
	if !strings.HasSuffix(e.Body, "\n") {
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}
