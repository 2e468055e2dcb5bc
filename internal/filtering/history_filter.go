package filtering

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/outreach"
)

type contactedHistoryFilter struct {
	toggle
}

// NewContactedHistory creates a filter that removes companies present in the
// contact history.
func NewContactedHistory() Filter {
	return &contactedHistoryFilter{}
}

func (f *contactedHistoryFilter) Name() string { return "contacted_history" }

func (f *contactedHistoryFilter) Validate(*Config) error { return nil }

func (f *contactedHistoryFilter) Apply(_ context.Context, deps Deps, matches []outreach.MatchResult) ([]outreach.MatchResult, Step, error) {
	initial := len(matches)
	if deps.History == nil {
		return matches, Step{Initial: initial, Left: initial}, nil
	}

	kept := make([]outreach.MatchResult, 0, len(matches))
	var excluded []string
	for _, match := range matches {
		if deps.History.Has(match.Startup.CompanyName) {
			excluded = append(excluded, match.Startup.CompanyName)
			continue
		}
		kept = append(kept, match)
	}

	if len(excluded) > 0 {
		deps.Logger.Info("excluding already contacted companies",
			zap.Strings("excluded_companies", excluded),
			zap.Int("matches_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(excluded), Left: len(kept)}, nil
}

func (f *contactedHistoryFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
