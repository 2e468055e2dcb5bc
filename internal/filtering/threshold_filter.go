package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/outreach/internal/outreach"
)

type thresholdFilter struct {
	toggle
	threshold   float64
	maxProjects int
}

// NewThreshold creates a filter that drops matches below the configured score
// and orders the remaining ones.
func NewThreshold() Filter {
	return &thresholdFilter{}
}

func (f *thresholdFilter) Name() string { return "threshold" }

func (f *thresholdFilter) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return fmt.Errorf("threshold must be within [0,1], got %v", cfg.Threshold)
	}
	if cfg.MaxProjects < 0 {
		return fmt.Errorf("max projects must not be negative, got %d", cfg.MaxProjects)
	}
	f.threshold = cfg.Threshold
	f.maxProjects = cfg.MaxProjects
	return nil
}

func (f *thresholdFilter) Apply(_ context.Context, _ Deps, matches []outreach.MatchResult) ([]outreach.MatchResult, Step, error) {
	selected := Select(matches, f.threshold, f.maxProjects)
	return selected, Step{Initial: len(matches), Dropped: len(matches) - len(selected), Left: len(selected)}, nil
}

func (f *thresholdFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"threshold":    strconv.FormatFloat(f.threshold, 'f', 2, 64),
			"max_projects": strconv.Itoa(f.maxProjects),
		},
	}
}
