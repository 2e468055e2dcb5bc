// Package dispatch delivers generated emails and records a per-message
// outcome on every match.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
)

const DefaultMessageTimeout = 30 * time.Second

// Confirmer asks for manual approval of a message that is not marked for
// automatic sending.
type Confirmer interface {
	Confirm(ctx context.Context, match *outreach.MatchResult, preview string) (bool, error)
}

// Config controls a dispatch batch.
type Config struct {
	FromName string
	// From overrides the profile email as sender address.
	From    string
	ReplyTo string
	// Timeout bounds a single send.
	Timeout time.Duration
	// ForceSend sends every message without confirmation.
	ForceSend bool
}

// Dispatcher sends one batch at a time. It is not safe for concurrent use.
type Dispatcher struct {
	cfg       Config
	transport Transport
	confirmer Confirmer
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a Dispatcher. confirmer may be nil, in which case messages
// without auto-send are skipped.
func New(cfg Config, transport Transport, confirmer Confirmer, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultMessageTimeout
	}
	return &Dispatcher{
		cfg:       cfg,
		transport: transport,
		confirmer: confirmer,
		logger:    logger,
		now:       time.Now,
	}
}

// Envelope addresses match.Email on behalf of profile.
func (d *Dispatcher) Envelope(profile *outreach.Profile, match *outreach.MatchResult) Envelope {
	env := Envelope{
		FromName: d.cfg.FromName,
		From:     d.cfg.From,
		ToName:   strings.TrimSpace(match.Startup.ContactName),
		To:       strings.TrimSpace(match.Startup.ContactEmail),
		ReplyTo:  d.cfg.ReplyTo,
	}
	if profile != nil {
		if env.From == "" {
			env.From = profile.Email
		}
		if env.FromName == "" {
			env.FromName = profile.Name
		}
	}
	if match.Email != nil {
		env.Subject = match.Email.Subject
		env.Body = match.Email.Body
	}
	return env
}

// Dispatch attempts delivery for every match in order and sets its Delivery.
// An authentication failure stops the batch and marks the failing message and
// everything after it as failed. The returned error is only about the
// profile; delivery problems are recorded on the matches.
func (d *Dispatcher) Dispatch(ctx context.Context, profile *outreach.Profile, matches []outreach.MatchResult) (outreach.DispatchSummary, error) {
	if err := profile.ValidateForDispatch(); err != nil {
		return outreach.DispatchSummary{}, err
	}

	defer func() {
		if err := d.transport.Close(); err != nil {
			d.logger.Warn("closing mail transport", zap.Error(err))
		}
	}()

	simulated := d.transport.Simulated()
	var authErr error

	for i := range matches {
		match := &matches[i]
		log := d.logger.With(logger.Company(match.Startup.CompanyName))

		if authErr != nil {
			match.Delivery = d.failed(outreach.ReasonAuthError, authErr, simulated)
			continue
		}

		if match.Email == nil || !match.Startup.HasContact() {
			match.Delivery = d.failed(outreach.ReasonNoEmail, errors.New("no email to send"), simulated)
			log.Info("skipping delivery", zap.String("reason", string(outreach.ReasonNoEmail)))
			continue
		}

		env := d.Envelope(profile, match)

		if !d.approved(ctx, match, env, log) {
			match.Delivery = &outreach.Delivery{
				Status:      outreach.StatusSkipped,
				Reason:      outreach.ReasonNotConfirmed,
				Simulated:   simulated,
				AttemptedAt: d.now(),
			}
			log.Info("message not confirmed, skipping")
			continue
		}

		err := d.send(ctx, env)
		switch {
		case err == nil:
			match.Delivery = &outreach.Delivery{
				Status:      outreach.StatusSent,
				Simulated:   simulated,
				AttemptedAt: d.now(),
			}
			log.Info("email sent", zap.String("to", env.To), zap.Bool("simulated", simulated))
		case errors.Is(err, outreach.ErrAuth):
			authErr = err
			match.Delivery = d.failed(outreach.ReasonAuthError, err, simulated)
			log.Error("mail transport rejected credentials, aborting remaining dispatch", zap.Error(err))
		default:
			match.Delivery = d.failed(outreach.ReasonTransportError, err, simulated)
			log.Warn("email delivery failed", zap.String("to", env.To), zap.Error(err))
		}
	}

	summary := Summarize(matches)
	d.logger.Info("dispatch finished",
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Bool("simulated", summary.Simulated),
	)
	return summary, nil
}

func (d *Dispatcher) approved(ctx context.Context, match *outreach.MatchResult, env Envelope, log *zap.Logger) bool {
	if match.AutoSend || d.cfg.ForceSend {
		return true
	}
	if d.confirmer == nil {
		return false
	}

	ok, err := d.confirmer.Confirm(ctx, match, env.Preview())
	if err != nil {
		log.Warn("confirmation failed", zap.Error(err))
		return false
	}
	return ok
}

func (d *Dispatcher) send(ctx context.Context, env Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	return d.transport.Send(ctx, env)
}

func (d *Dispatcher) failed(reason outreach.DeliveryReason, err error, simulated bool) *outreach.Delivery {
	return &outreach.Delivery{
		Status:      outreach.StatusFailed,
		Reason:      reason,
		Simulated:   simulated,
		Error:       err.Error(),
		AttemptedAt: d.now(),
	}
}

// Summarize counts delivery outcomes. Matches without a Delivery are ignored.
func Summarize(matches []outreach.MatchResult) outreach.DispatchSummary {
	var summary outreach.DispatchSummary
	for _, match := range matches {
		if match.Delivery == nil {
			continue
		}
		if match.Delivery.Simulated {
			summary.Simulated = true
		}
		switch match.Delivery.Status {
		case outreach.StatusSent:
			summary.Sent++
		case outreach.StatusSkipped:
			summary.Skipped++
		case outreach.StatusFailed:
			summary.Failed++
			if summary.FailuresByReason == nil {
				summary.FailuresByReason = make(map[outreach.DeliveryReason]int)
			}
			summary.FailuresByReason[match.Delivery.Reason]++
		}
	}
	return summary
}
