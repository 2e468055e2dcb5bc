package filtering

import (
	"context"

	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
)

type missingContactFilter struct {
	toggle
}

// NewMissingContact creates a filter that drops startups without a contact email.
func NewMissingContact() Filter {
	return &missingContactFilter{}
}

func (f *missingContactFilter) Name() string { return "missing_contact" }

func (f *missingContactFilter) Validate(*Config) error { return nil }

func (f *missingContactFilter) Apply(_ context.Context, deps Deps, matches []outreach.MatchResult) ([]outreach.MatchResult, Step, error) {
	kept := make([]outreach.MatchResult, 0, len(matches))
	for _, match := range matches {
		if !match.Startup.HasContact() {
			deps.Logger.Debug("dropping startup without contact email", logger.Company(match.Startup.CompanyName))
			continue
		}
		kept = append(kept, match)
	}
	return kept, Step{Initial: len(matches), Dropped: len(matches) - len(kept), Left: len(kept)}, nil
}
