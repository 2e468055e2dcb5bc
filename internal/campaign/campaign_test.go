package campaign

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/outreach/internal/dispatch"
	"github.com/spigell/outreach/internal/emailgen"
	"github.com/spigell/outreach/internal/history"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/scoring"
)

type okTransport struct{ sent []string }

func (o *okTransport) Send(_ context.Context, env dispatch.Envelope) error {
	o.sent = append(o.sent, env.To)
	return nil
}
func (o *okTransport) Close() error    { return nil }
func (o *okTransport) Simulated() bool { return false }

type failingScorer struct{}

func (failingScorer) ScoreAll(context.Context, *outreach.Profile, []outreach.Startup) ([]outreach.MatchResult, error) {
	return nil, errors.New("boom")
}

func profile() *outreach.Profile {
	return &outreach.Profile{
		Name:   "Jane Doe",
		Title:  "Backend engineer",
		Email:  "jane@example.com",
		Skills: []string{"Go", "PostgreSQL", "Kafka"},
		Projects: []outreach.Project{
			{Name: "Ledger", Description: "Payments ledger for marketplaces", TechStack: []string{"Go", "PostgreSQL"}},
		},
	}
}

func startups() []outreach.Startup {
	return []outreach.Startup{
		{CompanyName: "Acme Pay", Mission: "Payments ledger for marketplaces", TechStack: []string{"Go", "PostgreSQL", "Kafka"}, ContactName: "Ada", ContactEmail: "ada@acme.io"},
		{CompanyName: "No Contact", Mission: "Payments ledger", TechStack: []string{"Go", "PostgreSQL", "Kafka"}},
		{CompanyName: "Pixel Farm", Mission: "Game art", TechStack: []string{"Unity", "C#"}, ContactEmail: "hi@pixel.farm"},
		{CompanyName: "Beta Ledger", Mission: "Ledger for marketplaces", TechStack: []string{"Go", "Kafka"}, ContactEmail: "team@beta.dev"},
	}
}

func newRunner(opts Options, sender Sender) *Runner {
	r := New(opts,
		scoring.New(scoring.Config{}, nil, nil),
		emailgen.New(emailgen.Config{AutoSend: true, AutoSendMinScore: 0.01}, nil, nil),
		sender,
		nil,
	)
	r.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	r.newID = func() uuid.UUID { return uuid.MustParse("00000000-0000-4000-8000-000000000001") }
	return r
}

func TestRunWithoutDispatch(t *testing.T) {
	r := newRunner(Options{Threshold: 0.3}, nil)

	rep, err := r.Run(context.Background(), profile(), startups())
	require.NoError(t, err)

	assert.Equal(t, "00000000-0000-4000-8000-000000000001", rep.RunID)
	assert.Equal(t, "Jane Doe", rep.Profile.Name)
	require.NotEmpty(t, rep.Matches)
	assert.Equal(t, len(rep.Matches), rep.TotalMatches)

	names := make([]string, 0, len(rep.Matches))
	for i, m := range rep.Matches {
		names = append(names, m.Startup.CompanyName)
		require.NotNil(t, m.Email)
		assert.Nil(t, m.Delivery)
		assert.GreaterOrEqual(t, m.Scores.Overall, 0.3)
		if i > 0 {
			assert.GreaterOrEqual(t, rep.Matches[i-1].Scores.Overall, m.Scores.Overall)
		}
	}
	assert.Equal(t, "Acme Pay", names[0])
	assert.NotContains(t, names, "No Contact")
	assert.NotContains(t, names, "Pixel Farm")
	assert.Zero(t, rep.Dispatch.Sent)
}

func TestRunDispatchRecordsHistory(t *testing.T) {
	historyFile := filepath.Join(t.TempDir(), "contacted.json")
	transport := &okTransport{}
	sender := dispatch.New(dispatch.Config{}, transport, nil, nil)

	rep, err := newRunner(Options{Threshold: 0.3, HistoryFile: historyFile}, sender).Run(context.Background(), profile(), startups())
	require.NoError(t, err)

	assert.Equal(t, len(rep.Matches), rep.Dispatch.Sent)
	assert.Contains(t, transport.sent, "ada@acme.io")

	contacted, err := history.FromFile(historyFile)
	require.NoError(t, err)
	assert.True(t, contacted.Has("Acme Pay"))
	assert.Equal(t, "00000000-0000-4000-8000-000000000001", contacted.Entries[0].RunID)

	// a second run skips everyone already contacted
	again, err := newRunner(Options{Threshold: 0.3, HistoryFile: historyFile}, sender).Run(context.Background(), profile(), startups())
	require.NoError(t, err)
	assert.Empty(t, again.Matches)
}

func TestRunDispatchCreatesHistoryDirectory(t *testing.T) {
	historyFile := filepath.Join(t.TempDir(), "fresh-data-dir", "contacted.json")
	transport := &okTransport{}
	sender := dispatch.New(dispatch.Config{}, transport, nil, nil)

	rep, err := newRunner(Options{Threshold: 0.3, HistoryFile: historyFile}, sender).Run(context.Background(), profile(), startups())
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, len(transport.sent), rep.Dispatch.Sent)

	contacted, err := history.FromFile(historyFile)
	require.NoError(t, err)
	assert.Len(t, contacted.Entries, len(transport.sent))
}

func TestRunKeepsReportWhenHistoryNotSaved(t *testing.T) {
	historyFile := filepath.Join(t.TempDir(), "contacted.json")
	transport := &okTransport{}
	sender := dispatch.New(dispatch.Config{}, transport, nil, nil)

	r := newRunner(Options{Threshold: 0.3, HistoryFile: historyFile}, sender)
	r.saveHistory = func(*history.Contacted, string) error { return errors.New("disk full") }

	rep, err := r.Run(context.Background(), profile(), startups())
	require.ErrorIs(t, err, ErrHistoryNotSaved)
	require.ErrorContains(t, err, "disk full")
	require.NotNil(t, rep)
	assert.NotEmpty(t, transport.sent)
	assert.Equal(t, len(transport.sent), rep.Dispatch.Sent)
	assert.Equal(t, len(rep.Matches), rep.TotalMatches)
}

func TestRunSimulatedDispatchDoesNotRecordHistory(t *testing.T) {
	historyFile := filepath.Join(t.TempDir(), "contacted.json")
	sender := dispatch.New(dispatch.Config{}, dispatch.NewSimulatedTransport(1, 1), nil, nil)

	rep, err := newRunner(Options{Threshold: 0.3, HistoryFile: historyFile}, sender).Run(context.Background(), profile(), startups())
	require.NoError(t, err)
	assert.True(t, rep.Dispatch.Simulated)

	contacted, err := history.FromFile(historyFile)
	require.NoError(t, err)
	assert.Empty(t, contacted.Entries)
}

func TestRunDisabledFilter(t *testing.T) {
	rep, err := newRunner(Options{Threshold: 0.3, DisabledFilters: []string{"missing_contact"}}, nil).
		Run(context.Background(), profile(), startups())
	require.NoError(t, err)

	names := make([]string, 0, len(rep.Matches))
	for _, m := range rep.Matches {
		names = append(names, m.Startup.CompanyName)
	}
	assert.Contains(t, names, "No Contact")
}

func TestRunInvalidThreshold(t *testing.T) {
	_, err := newRunner(Options{Threshold: 1.5}, nil).Run(context.Background(), profile(), startups())
	require.ErrorContains(t, err, "threshold")
}

func TestRunScoringFailure(t *testing.T) {
	r := New(Options{}, failingScorer{}, emailgen.New(emailgen.Config{}, nil, nil), nil, nil)
	_, err := r.Run(context.Background(), profile(), startups())
	require.ErrorContains(t, err, "scoring: boom")
}

func TestDeliverStoredReport(t *testing.T) {
	stored, err := newRunner(Options{Threshold: 0.3}, nil).Run(context.Background(), profile(), startups())
	require.NoError(t, err)
	require.Len(t, stored.Matches, 2)

	// the reviewed batch is sent exactly as edited
	stored.Matches[0].Email.Subject = "Edited subject"
	stored.Matches[1].AutoSend = false

	historyFile := filepath.Join(t.TempDir(), "contacted.json")
	transport := &recordingTransport{}
	sender := dispatch.New(dispatch.Config{}, transport, nil, nil)
	r := newRunner(Options{HistoryFile: historyFile}, sender)

	rep, err := r.Deliver(context.Background(), stored)
	require.NoError(t, err)

	require.Len(t, transport.envs, 1)
	assert.Equal(t, "Edited subject", transport.envs[0].Subject)
	assert.Equal(t, "ada@acme.io", transport.envs[0].To)
	assert.Equal(t, 1, rep.Dispatch.Sent)
	assert.Equal(t, 1, rep.Dispatch.Skipped)
	assert.Equal(t, "Jane Doe", rep.Profile.Name)

	contacted, err := history.FromFile(historyFile)
	require.NoError(t, err)
	assert.True(t, contacted.Has("Acme Pay"))
	assert.False(t, contacted.Has("Beta Ledger"))

	// delivering the returned report again only retries what was not sent
	again, err := r.Deliver(context.Background(), rep)
	require.NoError(t, err)
	require.Len(t, again.Matches, 1)
	assert.Equal(t, "Beta Ledger", again.Matches[0].Startup.CompanyName)
	assert.Len(t, transport.envs, 1)
}

func TestDeliverRequiresSender(t *testing.T) {
	_, err := newRunner(Options{}, nil).Deliver(context.Background(), &outreach.CampaignReport{})
	require.ErrorContains(t, err, "no sender")
}

type recordingTransport struct{ envs []dispatch.Envelope }

func (r *recordingTransport) Send(_ context.Context, env dispatch.Envelope) error {
	r.envs = append(r.envs, env)
	return nil
}
func (r *recordingTransport) Close() error    { return nil }
func (r *recordingTransport) Simulated() bool { return false }
