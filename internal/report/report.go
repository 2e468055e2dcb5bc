// Package report builds and writes the campaign report artifact.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/outreach/internal/dispatch"
	"github.com/spigell/outreach/internal/outreach"
)

const (
	HighScore   = 0.8
	MediumScore = 0.6
)

// Distribution counts matches per score band.
type Distribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// New assembles the report for a finished run. Matches keep their order.
func New(runID uuid.UUID, profile *outreach.Profile, matches []outreach.MatchResult, now time.Time) *outreach.CampaignReport {
	report := &outreach.CampaignReport{
		RunID:        runID.String(),
		GeneratedAt:  now.UTC(),
		Matches:      matches,
		TotalMatches: len(matches),
		AverageScore: AverageScore(matches),
		Dispatch:     dispatch.Summarize(matches),
	}
	if report.Matches == nil {
		report.Matches = []outreach.MatchResult{}
	}
	if profile != nil {
		report.Profile = *profile
	}
	return report
}

// AverageScore is the mean overall score, 0 for no matches.
func AverageScore(matches []outreach.MatchResult) float64 {
	if len(matches) == 0 {
		return 0
	}
	var total float64
	for _, match := range matches {
		total += match.Scores.Overall
	}
	return total / float64(len(matches))
}

// Distribute sorts matches into high (>= 0.8), medium (>= 0.6) and low bands.
func Distribute(matches []outreach.MatchResult) Distribution {
	var d Distribution
	for _, match := range matches {
		switch score := match.Scores.Overall; {
		case score >= HighScore:
			d.High++
		case score >= MediumScore:
			d.Medium++
		default:
			d.Low++
		}
	}
	return d
}

// Write encodes the report as indented JSON.
func Write(w io.Writer, report *outreach.CampaignReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Read decodes a report written by Write.
func Read(r io.Reader) (*outreach.CampaignReport, error) {
	var report outreach.CampaignReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// ToFile writes the report to path, creating parent directories.
func ToFile(path string, report *outreach.CampaignReport) error {
	return writeFile(path, func(w io.Writer) error { return Write(w, report) })
}

// FromFile reads a report from path.
func FromFile(path string) (*outreach.CampaignReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// FileName is the default report file name for a run.
func FileName(runID string, ext string) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("campaign-%s.%s", short, ext)
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
