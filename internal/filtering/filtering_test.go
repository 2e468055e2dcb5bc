package filtering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/outreach/internal/history"
	"github.com/spigell/outreach/internal/outreach"
)

func match(company string, overall float64, projects ...string) outreach.MatchResult {
	return outreach.MatchResult{
		Startup:          outreach.Startup{CompanyName: company, ContactEmail: "hi@" + company + ".io"},
		Scores:           outreach.Scores{Overall: overall},
		RelevantProjects: projects,
	}
}

func companies(matches []outreach.MatchResult) []string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Startup.CompanyName)
	}
	return names
}

func TestSelectSortsAndBreaksTies(t *testing.T) {
	input := []outreach.MatchResult{
		match("delta", 0.7),
		match("alpha", 0.4),
		match("charlie", 0.9),
		match("bravo", 0.7),
		match("echo", 0.6),
	}

	got := Select(input, 0.6, 0)
	assert.Equal(t, []string{"charlie", "bravo", "delta", "echo"}, companies(got))

	again := Select(got, 0.6, 0)
	assert.Equal(t, got, again)

	// input order is untouched
	assert.Equal(t, "delta", input[0].Startup.CompanyName)
}

func TestSelectCapsProjects(t *testing.T) {
	input := []outreach.MatchResult{match("acme", 0.8, "a", "b", "c", "d")}

	got := Select(input, 0, 2)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b"}, got[0].RelevantProjects)
	assert.Len(t, input[0].RelevantProjects, 4)
}

func TestSelectExcludesLowJaccardScenario(t *testing.T) {
	got := Select([]outreach.MatchResult{match("react-shop", 1.0/3.0)}, 0.5, 0)
	assert.Empty(t, got)
}

func TestRunAppliesStepsAndLogs(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	deps := Deps{
		Logger: zap.New(core),
		History: &history.Contacted{Entries: []history.Entry{
			{CompanyName: "Bravo"},
		}},
	}

	noContact := match("foxtrot", 0.95)
	noContact.Startup.ContactEmail = ""

	input := []outreach.MatchResult{
		match("alpha", 0.2),
		match("bravo", 0.8),
		match("charlie", 0.9),
		noContact,
	}

	got, err := Run(context.Background(), &Config{Threshold: 0.5}, deps, Default(), input)
	require.NoError(t, err)
	assert.Equal(t, []string{"charlie"}, companies(got))

	steps := observed.FilterMessage("filter step").All()
	require.Len(t, steps, 3)
	assert.Equal(t, "missing_contact", steps[0].ContextMap()["name"])
	assert.Equal(t, int64(1), steps[0].ContextMap()["dropped"])
	assert.Equal(t, "contacted_history", steps[1].ContextMap()["name"])
	assert.Equal(t, "threshold", steps[2].ContextMap()["name"])
	assert.Equal(t, int64(1), steps[2].ContextMap()["left"])
}

func TestRunSkipsDisabledFilters(t *testing.T) {
	steps := Default()
	DisableByName(steps, "contacted_history", "requested by flag")

	deps := Deps{History: &history.Contacted{Entries: []history.Entry{{CompanyName: "bravo"}}}}
	got, err := Run(context.Background(), &Config{Threshold: 0}, deps, steps, []outreach.MatchResult{match("bravo", 0.3)})
	require.NoError(t, err)
	assert.Equal(t, []string{"bravo"}, companies(got))

	statuses := Describe(steps)
	require.Len(t, statuses, 3)
	assert.False(t, statuses[1].Enabled)
	assert.Equal(t, "requested by flag", statuses[1].Reason)
}

func TestRunRejectsInvalidThreshold(t *testing.T) {
	_, err := Run(context.Background(), &Config{Threshold: 1.5}, Deps{}, Default(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
}
