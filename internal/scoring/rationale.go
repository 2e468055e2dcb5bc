package scoring

import (
	"fmt"
	"strings"

	"github.com/spigell/outreach/internal/outreach"
)

// rationale accumulates reasoning lines in factor order.
type rationale struct {
	lines []string
}

func (r *rationale) add(line string) {
	r.lines = append(r.lines, line)
}

func (r *rationale) addf(format string, args ...any) {
	r.add(fmt.Sprintf(format, args...))
}

func (r *rationale) domain(score float64) {
	switch {
	case score > 0.6:
		r.add("Domain expertise aligns with company mission")
	case score > 0.4:
		r.add("Relevant experience in similar problem spaces")
	case score > 0:
		r.addf("Limited domain overlap with company mission (%.2f)", score)
	default:
		r.add("Domain alignment scored 0: no shared domain keywords")
	}
}

func (r *rationale) projects(relevant []string) {
	switch len(relevant) {
	case 0:
		r.add("Project relevance scored 0: no projects overlap with the startup")
	case 1:
		r.addf("Direct project relevance: %s", relevant[0])
	default:
		r.addf("Multiple relevant projects: %s", strings.Join(relevant, ", "))
	}
}

func (r *rationale) context(startup outreach.Startup) {
	if stage := startup.FundingStage; stage != "" && stage != outreach.FundingOther {
		r.addf("Experience with %s stage companies", stage)
	}
	if startup.TeamSize != nil && *startup.TeamSize > 0 && *startup.TeamSize < 50 {
		r.add("Experience in early-stage, fast-paced environments")
	}
}
