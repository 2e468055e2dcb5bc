package outreach

import "time"

// DispatchSummary counts delivery outcomes for a run.
type DispatchSummary struct {
	Sent             int                    `json:"sent"`
	Failed           int                    `json:"failed"`
	Skipped          int                    `json:"skipped"`
	FailuresByReason map[DeliveryReason]int `json:"failures_by_reason,omitempty"`
	Simulated        bool                   `json:"simulated"`
}

// CampaignReport is the artifact written at the end of a run.
type CampaignReport struct {
	RunID        string          `json:"run_id"`
	GeneratedAt  time.Time       `json:"generated_at"`
	Profile      Profile         `json:"profile"`
	Matches      []MatchResult   `json:"matches"`
	TotalMatches int             `json:"total_matches"`
	AverageScore float64         `json:"average_score"`
	Dispatch     DispatchSummary `json:"dispatch"`
}
