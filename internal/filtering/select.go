package filtering

import (
	"sort"

	"github.com/spigell/outreach/internal/outreach"
)

// Select keeps matches with an overall score of at least threshold, sorted by
// score descending with ties broken by company name. When maxProjects is
// positive each match keeps at most that many relevant projects. The input is
// not modified and Select(Select(x)) == Select(x).
func Select(matches []outreach.MatchResult, threshold float64, maxProjects int) []outreach.MatchResult {
	selected := make([]outreach.MatchResult, 0, len(matches))
	for _, match := range matches {
		if match.Scores.Overall < threshold {
			continue
		}
		if maxProjects > 0 && len(match.RelevantProjects) > maxProjects {
			match.RelevantProjects = append([]string(nil), match.RelevantProjects[:maxProjects]...)
		}
		selected = append(selected, match)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if a.Scores.Overall != b.Scores.Overall {
			return a.Scores.Overall > b.Scores.Overall
		}
		return a.Startup.CompanyName < b.Startup.CompanyName
	})

	return selected
}
