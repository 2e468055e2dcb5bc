package outreach

import "strings"

// FundingStage is the funding round a startup reported.
type FundingStage string

const (
	FundingSeed        FundingStage = "Seed"
	FundingSeriesA     FundingStage = "Series A"
	FundingSeriesB     FundingStage = "Series B"
	FundingSeriesC     FundingStage = "Series C"
	FundingYCombinator FundingStage = "Y Combinator"
	FundingOther       FundingStage = "Other"
)

var fundingStages = []FundingStage{
	FundingSeed,
	FundingSeriesA,
	FundingSeriesB,
	FundingSeriesC,
	FundingYCombinator,
}

// ParseFundingStage maps free text to a known stage. Empty input stays empty,
// anything unrecognised becomes FundingOther.
func ParseFundingStage(raw string) FundingStage {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	compact := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(trimmed))
	for _, stage := range fundingStages {
		if compact == strings.ReplaceAll(strings.ToLower(string(stage)), " ", "") {
			return stage
		}
	}

	switch compact {
	case "yc", "ycombinator":
		return FundingYCombinator
	case "preseed":
		return FundingSeed
	}

	return FundingOther
}

// Startup is a single outreach target.
type Startup struct {
	CompanyName  string       `json:"company_name" validate:"required"`
	Mission      string       `json:"mission"`
	TechStack    []string     `json:"tech_stack"`
	ContactName  string       `json:"contact_name"`
	ContactEmail string       `json:"contact_email" validate:"omitempty,email"`
	Website      string       `json:"website,omitempty" validate:"omitempty,url"`
	Location     string       `json:"location,omitempty"`
	FundingStage FundingStage `json:"funding_stage,omitempty"`
	TeamSize     *int         `json:"team_size,omitempty" validate:"omitempty,gte=0"`
	Product      string       `json:"product,omitempty"`
	Industry     string       `json:"industry,omitempty"`
	Description  string       `json:"description,omitempty"`
}

// HasContact reports whether the startup carries an address to write to.
func (s Startup) HasContact() bool {
	return strings.TrimSpace(s.ContactEmail) != ""
}

// Greeting returns the name used to address the startup contact.
func (s Startup) Greeting() string {
	name := strings.TrimSpace(s.ContactName)
	if name == "" {
		return "Team"
	}
	return name
}
