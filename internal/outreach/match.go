package outreach

import (
	"math"
	"time"
)

// DomainMethod records which technique produced the domain score.
type DomainMethod string

const (
	DomainKeywords  DomainMethod = "keywords"
	DomainEmbedding DomainMethod = "embedding"
)

// EmailSource records how an email was written.
type EmailSource string

const (
	EmailFromAI       EmailSource = "ai"
	EmailFromTemplate EmailSource = "template"
)

// DeliveryStatus is the outcome of a single dispatch attempt.
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
	StatusSkipped DeliveryStatus = "skipped"
)

// DeliveryReason explains a failed or skipped delivery.
type DeliveryReason string

const (
	ReasonNone           DeliveryReason = ""
	ReasonAuthError      DeliveryReason = "auth_error"
	ReasonTransportError DeliveryReason = "transport_error"
	ReasonNotConfirmed   DeliveryReason = "not_confirmed"
	ReasonNoEmail        DeliveryReason = "no_email"
)

// Scores holds the sub-scores and the weighted overall score, each in [0,1].
type Scores struct {
	TechStack        float64 `json:"tech_stack"`
	Domain           float64 `json:"domain"`
	ProjectRelevance float64 `json:"project_relevance"`
	Overall          float64 `json:"overall"`
}

// Email is a generated outreach message.
type Email struct {
	Subject string      `json:"subject"`
	Body    string      `json:"body"`
	Source  EmailSource `json:"source"`
}

// Delivery is the recorded outcome of dispatching one email.
type Delivery struct {
	Status      DeliveryStatus `json:"status"`
	Reason      DeliveryReason `json:"reason,omitempty"`
	Simulated   bool           `json:"simulated"`
	Error       string         `json:"error,omitempty"`
	AttemptedAt time.Time      `json:"attempted_at"`
}

// MatchResult is a scored association between the profile and a startup.
// Email and AutoSend are filled by the email generator, Delivery by the
// dispatcher.
type MatchResult struct {
	ProfileName      string       `json:"profile_name"`
	Startup          Startup      `json:"startup"`
	Scores           Scores       `json:"scores"`
	RelevantProjects []string     `json:"relevant_projects"`
	Reasoning        []string     `json:"reasoning"`
	DomainMethod     DomainMethod `json:"domain_method"`
	Email            *Email       `json:"email,omitempty"`
	AutoSend         bool         `json:"auto_send"`
	Delivery         *Delivery    `json:"delivery,omitempty"`
}

// Clamp01 bounds v to [0,1]. NaN is treated as 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
