// Package campaign runs the outreach pipeline: scoring, selection, email
// generation, optional dispatch and the final report.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/filtering"
	"github.com/spigell/outreach/internal/history"
	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/report"
)

// Scorer scores every startup against the profile, in input order.
type Scorer interface {
	ScoreAll(ctx context.Context, profile *outreach.Profile, startups []outreach.Startup) ([]outreach.MatchResult, error)
}

// Writer attaches an email and the auto-send flag to every match.
type Writer interface {
	Apply(ctx context.Context, profile *outreach.Profile, matches []outreach.MatchResult)
}

// Sender delivers the emails of the matches and records outcomes on them.
type Sender interface {
	Dispatch(ctx context.Context, profile *outreach.Profile, matches []outreach.MatchResult) (outreach.DispatchSummary, error)
}

// Options controls a run.
type Options struct {
	Threshold   float64
	MaxProjects int
	// HistoryFile lists companies contacted by earlier runs. Empty disables
	// both the history filter and recording new sends.
	HistoryFile     string
	DisabledFilters []string
}

// Runner executes campaigns. A nil Sender produces a report without any
// delivery attempt.
type Runner struct {
	opts    Options
	scorer  Scorer
	writer  Writer
	sender  Sender
	filters []filtering.Filter
	logger  *zap.Logger

	now         func() time.Time
	newID       func() uuid.UUID
	saveHistory func(*history.Contacted, string) error
}

func New(opts Options, scorer Scorer, writer Writer, sender Sender, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		opts:    opts,
		scorer:  scorer,
		writer:  writer,
		sender:  sender,
		filters: filtering.Default(),
		logger:  log,
		now:     time.Now,
		newID:   uuid.New,
		saveHistory: func(c *history.Contacted, path string) error {
			return c.ToFile(path)
		},
	}
}

// Filters exposes the selection steps, e.g. for status reporting.
func (r *Runner) Filters() []filtering.Filter {
	return r.filters
}

// ErrHistoryNotSaved marks a run whose emails went out but whose contact
// history could not be written. Run returns the report alongside it.
var ErrHistoryNotSaved = errors.New("saving contact history")

// Run processes startups for profile and returns the report of the run. When
// recording the sends fails the report is still returned together with an
// error wrapping ErrHistoryNotSaved.
func (r *Runner) Run(ctx context.Context, profile *outreach.Profile, startups []outreach.Startup) (*outreach.CampaignReport, error) {
	if profile == nil {
		return nil, errors.New("no profile to run the campaign for")
	}

	runID := r.newID()
	log := logger.WithFields(r.logger, logger.CampaignFields(runID.String(), profile.Name)...)

	contacted, err := r.loadHistory(log)
	if err != nil {
		return nil, err
	}

	log.Info("scoring startups", zap.Int("count", len(startups)))
	scored, err := r.scorer.ScoreAll(ctx, profile, startups)
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}

	for _, name := range r.opts.DisabledFilters {
		filtering.DisableByName(r.filters, name, "disabled by configuration")
	}

	selected, err := filtering.Run(ctx,
		&filtering.Config{Threshold: r.opts.Threshold, MaxProjects: r.opts.MaxProjects},
		filtering.Deps{Logger: log, History: contacted},
		r.filters,
		scored,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting matches: %w", err)
	}
	log.Info("selected matches", zap.Int("count", len(selected)), zap.Float64("threshold", r.opts.Threshold))

	if len(selected) > 0 {
		log.Info("generating emails", zap.Int("count", len(selected)))
		r.writer.Apply(ctx, profile, selected)
	}

	if r.sender != nil && len(selected) > 0 {
		if _, err := r.sender.Dispatch(ctx, profile, selected); err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}
		if err := r.recordSends(runID.String(), contacted, selected, log); err != nil {
			log.Error("contact history not updated", zap.String("file", r.opts.HistoryFile), zap.Error(err))
			return report.New(runID, profile, selected, r.now()), err
		}
	}

	return report.New(runID, profile, selected, r.now()), nil
}

// Deliver sends the emails of a stored report as they are, without scoring
// or writing them again. Matches already sent for real and companies found in
// the contact history are left out. The returned report covers the attempted
// matches only; a failure to record the sends is reported as in Run.
func (r *Runner) Deliver(ctx context.Context, stored *outreach.CampaignReport) (*outreach.CampaignReport, error) {
	if r.sender == nil {
		return nil, errors.New("no sender configured")
	}
	if stored == nil {
		return nil, errors.New("no report to deliver")
	}

	runID := r.newID()
	profile := stored.Profile
	log := logger.WithFields(r.logger, logger.CampaignFields(runID.String(), profile.Name)...)
	log = log.With(zap.String("source_run_id", stored.RunID))

	contacted, err := r.loadHistory(log)
	if err != nil {
		return nil, err
	}

	pending := make([]outreach.MatchResult, 0, len(stored.Matches))
	for _, match := range stored.Matches {
		if d := match.Delivery; d != nil && d.Status == outreach.StatusSent && !d.Simulated {
			log.Info("already sent, skipping", logger.Company(match.Startup.CompanyName))
			continue
		}
		if contacted.Has(match.Startup.CompanyName) {
			log.Info("already contacted, skipping", logger.Company(match.Startup.CompanyName))
			continue
		}
		match.Delivery = nil
		pending = append(pending, match)
	}
	log.Info("delivering stored emails", zap.Int("count", len(pending)), zap.Int("stored", len(stored.Matches)))

	if len(pending) > 0 {
		if _, err := r.sender.Dispatch(ctx, &profile, pending); err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}
		if err := r.recordSends(runID.String(), contacted, pending, log); err != nil {
			log.Error("contact history not updated", zap.String("file", r.opts.HistoryFile), zap.Error(err))
			return report.New(runID, &profile, pending, r.now()), err
		}
	}

	return report.New(runID, &profile, pending, r.now()), nil
}

func (r *Runner) loadHistory(log *zap.Logger) (*history.Contacted, error) {
	if r.opts.HistoryFile == "" {
		filtering.DisableByName(r.filters, "contacted_history", "no history file configured")
		return nil, nil
	}

	contacted, err := history.FromFile(r.opts.HistoryFile)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded contact history", zap.String("file", r.opts.HistoryFile), zap.Int("entries", len(contacted.Entries)))
	return contacted, nil
}

// recordSends appends real deliveries to the history file.
func (r *Runner) recordSends(runID string, contacted *history.Contacted, matches []outreach.MatchResult, log *zap.Logger) error {
	if contacted == nil {
		return nil
	}

	entries := make([]history.Entry, 0, len(matches))
	for _, match := range matches {
		d := match.Delivery
		if d == nil || d.Status != outreach.StatusSent || d.Simulated {
			continue
		}
		entries = append(entries, history.Entry{
			CompanyName:  match.Startup.CompanyName,
			ContactEmail: match.Startup.ContactEmail,
			ContactedAt:  d.AttemptedAt.UTC(),
			RunID:        runID,
		})
	}

	added := contacted.Append(entries...)
	if added == 0 {
		return nil
	}
	if err := r.saveHistory(contacted, r.opts.HistoryFile); err != nil {
		return fmt.Errorf("%w: %w", ErrHistoryNotSaved, err)
	}
	log.Info("updated contact history", zap.String("file", r.opts.HistoryFile), zap.Int("added", added))
	return nil
}
