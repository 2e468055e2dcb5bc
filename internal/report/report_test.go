package report

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/outreach/internal/outreach"
)

var runID = uuid.MustParse("7f0c2f4e-9d3b-4c51-8a7e-2b6d1e0f9a11")

func sampleMatches() []outreach.MatchResult {
	teamSize := 12
	return []outreach.MatchResult{
		{
			ProfileName: "Jane Doe",
			Startup: outreach.Startup{
				CompanyName:  "Acme Pay",
				TechStack:    []string{"Go", "Kafka"},
				ContactName:  "Ada",
				ContactEmail: "ada@acme.io",
				FundingStage: outreach.FundingSeriesA,
				TeamSize:     &teamSize,
			},
			Scores:           outreach.Scores{TechStack: 0.9, Domain: 0.8, ProjectRelevance: 0.85, Overall: 0.86},
			RelevantProjects: []string{"Ledger"},
			Reasoning:        []string{"Tech stack alignment: 2 matching technologies (go, kafka)"},
			DomainMethod:     outreach.DomainKeywords,
			Email:            &outreach.Email{Subject: "Hi", Body: "Body", Source: outreach.EmailFromTemplate},
			AutoSend:         true,
			Delivery: &outreach.Delivery{
				Status:      outreach.StatusSent,
				Simulated:   true,
				AttemptedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			},
		},
		{
			ProfileName:      "Jane Doe",
			Startup:          outreach.Startup{CompanyName: "Beta", ContactEmail: "b@beta.dev"},
			Scores:           outreach.Scores{Overall: 0.65},
			RelevantProjects: []string{},
			Reasoning:        []string{},
			DomainMethod:     outreach.DomainEmbedding,
			Delivery: &outreach.Delivery{
				Status:      outreach.StatusFailed,
				Reason:      outreach.ReasonTransportError,
				Simulated:   true,
				Error:       "transport error: simulated delivery failure",
				AttemptedAt: time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC),
			},
		},
		{
			ProfileName:      "Jane Doe",
			Startup:          outreach.Startup{CompanyName: "Gamma"},
			Scores:           outreach.Scores{Overall: 0.31},
			RelevantProjects: []string{},
			Reasoning:        []string{},
			DomainMethod:     outreach.DomainKeywords,
		},
	}
}

func sampleReport() *outreach.CampaignReport {
	profile := &outreach.Profile{Name: "Jane Doe", Email: "jane@example.com"}
	return New(runID, profile, sampleMatches(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)))
}

func TestNewSummarizes(t *testing.T) {
	report := sampleReport()

	assert.Equal(t, runID.String(), report.RunID)
	assert.Equal(t, time.UTC, report.GeneratedAt.Location())
	assert.Equal(t, 3, report.TotalMatches)
	assert.InDelta(t, (0.86+0.65+0.31)/3, report.AverageScore, 1e-9)
	assert.Equal(t, 1, report.Dispatch.Sent)
	assert.Equal(t, 1, report.Dispatch.Failed)
	assert.True(t, report.Dispatch.Simulated)
	assert.Equal(t, map[outreach.DeliveryReason]int{outreach.ReasonTransportError: 1}, report.Dispatch.FailuresByReason)
}

func TestNewEmpty(t *testing.T) {
	report := New(runID, nil, nil, time.Now())
	assert.Zero(t, report.AverageScore)
	assert.NotNil(t, report.Matches)
	assert.Zero(t, report.TotalMatches)
}

func TestDistribute(t *testing.T) {
	assert.Equal(t, Distribution{High: 1, Medium: 1, Low: 1}, Distribute(sampleMatches()))

	edge := []outreach.MatchResult{{Scores: outreach.Scores{Overall: 0.8}}, {Scores: outreach.Scores{Overall: 0.6}}}
	assert.Equal(t, Distribution{High: 1, Medium: 1}, Distribute(edge))
}

func TestJSONRoundTrip(t *testing.T) {
	report := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, report))
	assert.Contains(t, buf.String(), "\n  \"run_id\"")

	decoded, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, report, decoded)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName(runID.String(), "json"))
	report := sampleReport()

	require.NoError(t, ToFile(path, report))
	decoded, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, report, decoded)
	assert.Equal(t, "campaign-7f0c2f4e.json", filepath.Base(path))
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "# Outreach Campaign Report")
	assert.Contains(t, out, "Acme Pay")
	assert.Contains(t, out, "0.86")
	assert.Contains(t, out, "mermaid")
	assert.Contains(t, out, "transport_error: 1")
	assert.Contains(t, out, "sent (simulated)")
}

func TestWriteMarkdownEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, New(runID, nil, nil, time.Now())))
	out := buf.String()

	assert.Contains(t, out, "No startups passed the match threshold.")
	assert.NotContains(t, out, "Top Matches")
	assert.NotContains(t, out, "## Dispatch")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleMatches()))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{
		"1", "Acme Pay", "Ada", "ada@acme.io", "0.8600", "0.9000", "0.8000", "0.8500",
		"keywords", "Ledger", "Hi", "template", "true", "sent", "",
	}, records[1])
	assert.Equal(t, "transport_error", records[2][14])
	assert.Equal(t, "", records[3][13])
}
